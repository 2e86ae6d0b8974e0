package messages

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"

	"go_form_bot/database"
)

func TestReceiptName(t *testing.T) {
	fields := []string{"Telefon", "Adı Soyadı", "Email"}
	assert.Equal(t, "Jane Doe", ReceiptName(fields, []string{"555", "Jane Doe", "j@x.com"}))
	assert.Equal(t, "555", ReceiptName([]string{"Telefon", "Email"}, []string{"555", "j@x.com"}))
	assert.Equal(t, "", ReceiptName(nil, nil))
}

func TestFormatReceipt(t *testing.T) {
	got := FormatReceipt(1, "yahoo", []string{"Ad Soyad", "Telefon"}, []string{"Jane Doe", "5551234"})
	assert.Equal(t, "✅ #1 Numaralı Yahoo Hesabı Excele işlendi. ✅\nJane Doe\n\n📝 Yeni veri girişi için:\n/form yahoo", got)
}

func TestFormatMissingAndExtra(t *testing.T) {
	assert.Contains(t, FormatMissing([]string{"Email"}), "• Email")
	assert.Contains(t, FormatExtra(1, []string{"Ad", "Email"}), "1 adet fazla veri")
}

func TestFormatCredits(t *testing.T) {
	assert.Equal(t, "2", FormatCredits(database.Rights(2)))
	assert.Equal(t, "0.5", FormatCredits(database.Credits(5000)))
}

func TestFormatAmount(t *testing.T) {
	assert.Equal(t, "500", FormatAmount(big.NewRat(500, 1)))
	assert.Equal(t, "12.5", FormatAmount(big.NewRat(25, 2)))
	assert.Equal(t, "0.33", FormatAmount(big.NewRat(1, 3)))
}

func TestFormatTopUp(t *testing.T) {
	prompt := FormatTopUpPrompt(big.NewRat(500, 1), big.NewRat(10, 1))
	assert.Contains(t, prompt, "Minimum yükleme tutarı: 500₺")
	assert.Contains(t, prompt, "Form başı ücret: 10₺")

	invoice := FormatTopUpInvoice(big.NewRat(600, 1), "17.21", "TXyz", database.Rights(60))
	assert.Contains(t, invoice, "Yüklenecek Tutar: 600₺")
	assert.Contains(t, invoice, "Ödenecek USDT: 17.21")
	assert.Contains(t, invoice, "TXyz")
	assert.Contains(t, invoice, "20 dakika")
}
