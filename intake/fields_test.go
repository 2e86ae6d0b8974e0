package intake

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSplitLines(t *testing.T) {
	assert.Equal(t, []string{"Ad Soyad", "Telefon"}, SplitLines("  Ad Soyad \n\n Telefon\n  \n"))
	assert.Empty(t, SplitLines(" \n\t\n"))
}

func TestIsCancel(t *testing.T) {
	for _, s := range []string{"iptal", " IPTAL ", "/iptal"} {
		assert.True(t, IsCancel(s), s)
	}
	for _, s := range []string{"", "iptal et", "/form"} {
		assert.False(t, IsCancel(s), s)
	}
}

func TestIsAttachmentField(t *testing.T) {
	assert.True(t, IsAttachmentField("Dekont"))
	assert.True(t, IsAttachmentField("Ödeme MAKBUZU"))
	assert.True(t, IsAttachmentField("receipt photo"))
	assert.False(t, IsAttachmentField("Telefon"))
}

func TestCheckCount(t *testing.T) {
	fields := []string{"Ad Soyad", "Telefon", "Email"}

	assert.True(t, CheckCount(fields, []string{"a", "b", "c"}).OK())

	c := CheckCount(fields, []string{"a", "b"})
	assert.Equal(t, []string{"Email"}, c.Missing)
	assert.False(t, c.AwaitAttachment)

	c = CheckCount(fields, []string{"a"})
	assert.Equal(t, []string{"Telefon", "Email"}, c.Missing)

	c = CheckCount(fields, []string{"a", "b", "c", "d"})
	assert.Equal(t, 1, c.Extra)
	assert.Empty(t, c.Missing)

	withReceipt := []string{"Ad Soyad", "Tutar", "Dekont"}
	c = CheckCount(withReceipt, []string{"a", "b"})
	assert.True(t, c.AwaitAttachment)
	assert.Empty(t, c.Missing)

	// вложение ожидается только вместо последнего поля
	c = CheckCount(withReceipt, []string{"a"})
	assert.Equal(t, []string{"Tutar", "Dekont"}, c.Missing)
}
