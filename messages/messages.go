package messages

import (
	"fmt"
	"math/big"
	"strings"

	"go_form_bot/database"
)

const (
	MsgError = `⛔️ Bir hata oluştu!`

	MsgWelcome = `👋 Merhaba! Ben form botuyum.

📅 Excel işlerinizi Telegram'da otomatikleştirmek için tasarlandım:

✅ Tek komutla rapor oluştur
✅ Telegram dışına çıkmana gerek yok
✅ Tüm verileriniz şifrelenmiş olarak saklanır

ℹ️ Komutları görmek için /yardim yazın.`

	MsgHelpGuest = `ℹ️ Bot komutlarına erişmek için önce hesabınıza bakiye yüklemeniz gerekiyor.

📲 Bakiye yüklemek için: /bakiyeyukle

💡 Ödemeniz onaylandıktan sonra tüm komutlara erişebileceksiniz!`

	MsgHelpAdmin = `Kullanılabilir Komutlar:

📋 Form İşlemleri:
📝 /formekle - Yeni form oluştur
📊 /formlar - Mevcut formları listele
📄 /form - Form verisi gir
🗑 /formsil - Form sil
📈 /rapor - Form verilerini Excel olarak al
❌ /kayitsil - Kayıt sil

💰 Bakiye İşlemleri:
💵 /bakiye - Mevcut bakiyeyi gösterir
💳 /bakiyeyukle - Bakiye yükleme işlemi başlatır

🏢 Grup İşlemleri:
🔍 /chatid - Sohbet ID'sini gösterir
📂 /gruplar - Grupları listeler
➕ /grupekle - Yeni grup ekler
➖ /grupsil - Grup siler`

	MsgHelpSuper = `

👑 Süper Admin Komutları:
👤 /adminekle - Yeni admin ekler
🚫 /adminsil - Admin yetkisi kaldırır
📋 /adminler - Tüm adminleri listeler
➕ /bakiyeekle - Admine bakiye ekler
➖ /bakiyesil - Adminden bakiye siler`

	MsgPrivateChat = `⛔️ Bu komut özel mesajlarda sadece adminler tarafından kullanılabilir!

ℹ️ Yetkili gruplarda bu komutu kullanabilirsiniz.`

	MsgGroupNotAuthorized = `⛔️ Bu grup yetkili bir admin tarafından eklenmemiş!

ℹ️ Botun çalışması için bir admin tarafından grubun eklenmesi gerekiyor.`

	MsgNotAdmin = `⛔️ Bu komutu sadece adminler kullanabilir!`

	MsgNotSuperAdmin = `⛔️ Bu komutu sadece süper admin kullanabilir!`

	MsgDefineUsage = `📝 Doğru Kullanım:
/formekle FormAdı

Örnek:
/formekle yahoo`

	MsgEnterUsage = `Örnek: /form yahoo
veya
/form yahoo
değer1
değer2
değer3`

	MsgNoFields = `⛔️ En az bir alan girmelisiniz!

❗️ Her alanı yeni bir satıra yazın.`

	MsgCancelled = `⛔️ Form işlemi iptal edildi.
Mevcut formları görmek için /formlar komutunu kullanabilirsiniz.`

	MsgNothingToCancel = `ℹ️ İptal edilecek bir işlem yok.`

	MsgInsufficientCredit = `⛔️ Bu form için yeterli kullanım hakkı bulunmuyor!

Form sahibi adminin bakiyesi yetersiz. Lütfen admin ile iletişime geçin.`

	MsgDuplicate = `⛔️ Bu form verisi excel tablosunda mevcut!`

	MsgAttachmentRejected = `⛔️ Lütfen dekontu fotoğraf veya belge olarak gönderin.

📎 Kabul edilen formatlar: JPG, PNG, WEBP, PDF
❓ İptal etmek için /iptal yazabilirsiniz.`

	MsgUploadFailed = `⛔️ Dosya yüklenirken bir hata oluştu! Lütfen tekrar gönderin.`

	MsgChargedNotRecorded = `⛔️ Kayıt sırasında bir hata oluştu. Kullanım hakkı düşülmüş olabilir, yönetici bilgilendirildi.`

	MsgNoForms = `⛔️ Henüz hiç form bulunmamaktadır.`

	MsgDeleteFormUsage = `⛔️ Form adı belirtmelisiniz!

Örnek:
/formsil yahoo`

	MsgDeleteFormFailed = `⛔️ Form silinemedi!

Olası nedenler:
• Form bulunamadı
• Form size ait değil`

	MsgReportUsage = `⛔️ Lütfen form adını belirtin!

📝 Doğru Kullanım:
/rapor form adı

Örnek:
/rapor yahoo

📅 Belirli bir tarih aralığı için rapor almak isterseniz:
/rapor form adı GG.AA.YYYY GG.AA.YYYY

Örnek:
/rapor yahoo 01.03.2025 10.03.2025`

	MsgInvalidDate = `⛔️ Geçersiz tarih formatı!

📅 Tarih formatı GG.AA.YYYY şeklinde olmalıdır.
Örnek: 01.03.2025`

	MsgDeleteSubmissionUsage = `⛔️ Kayıt numarası belirtmelisiniz!

Örnek:
/kayitsil 15`

	MsgSubmissionNotFound = `⛔️ Kayıt bulunamadı veya size ait değil!`

	MsgGrantUsage = `⛔️ Hatalı format!

📝 Doğru Kullanım:
/bakiyeekle AdminID Miktar

📱 Örnek:
/bakiyeekle 1234567890 100`

	MsgRevokeUsage = `⛔️ Hatalı format!

📝 Doğru Kullanım:
/bakiyesil AdminID KullanımHakkı

📱 Örnek:
/bakiyesil 1234567890 50`

	MsgInvalidAmount = `⛔️ Miktar pozitif bir sayı olmalıdır!`

	MsgTopUpInvalid = `⛔️ Geçersiz tutar! Lütfen sayısal bir değer giriniz.

Örnek: 500`

	MsgTopUpCreating = `⏳ Ödeme adresi oluşturuluyor, lütfen bekleyin...`

	MsgTopUpFailed = `⛔️ Ödeme adresi oluşturulurken bir hata oluştu!

Lütfen daha sonra tekrar deneyin.`

	MsgTopUpCancelled = `❌ Bakiye yükleme işlemi iptal edildi.`

	MsgTopUpUnavailable = `⛔️ Bakiye yükleme şu anda kullanılamıyor.`

	MsgTopUpExpired = `⌛️ Ödeme süresi doldu. Yeni bir ödeme için /bakiyeyukle yazabilirsiniz.`

	MsgInvalidID = `⛔️ ID sayısal olmalıdır!`

	MsgAddAdminUsage = `⛔️ Hatalı format!

📝 Doğru Kullanım:
/adminekle TelegramID [AdminAdı]

📱 Örnek:
/adminekle 1234567890 Ayşe`

	MsgRemoveAdminUsage = `⛔️ Hatalı format!

📝 Doğru Kullanım:
/adminsil TelegramID`

	MsgNoAdmins = `ℹ️ Henüz admin eklenmemiş.`

	MsgNoGroups = `ℹ️ Henüz grup eklenmemiş.`

	MsgGroupExists = `⛔️ Bu grup zaten eklenmiş!`

	MsgGroupNotFound = `⛔️ Belirtilen ID'ye sahip grup bulunamadı!`

	MsgAddGroupUsage = `⛔️ Bu komutu grupta kullanın veya grup bilgisi verin:
/grupekle GrupID GrupAdı`
)

func FormatFieldsPrompt(form string) string {
	return fmt.Sprintf(`✅ Form adı: %s

2️⃣ Form alanlarını belirleyin.
❗️ Her alanı yeni bir satıra yazın.
📋 Alanların sırası önemlidir, kullanıcılar bu sırayla doldurur.

Örnek:
Ad Soyad
Telefon
Email`, form)
}

func FormatFormExists(form string) string {
	return fmt.Sprintf(`📝 '%s' formu zaten mevcut!

Veri girişi yapmak için /form %s komutunu kullanabilirsiniz.`, form, form)
}

func FormatFormCreated(form string) string {
	return fmt.Sprintf(`✅ Form başarıyla oluşturuldu!

📝 Form Adı: %s

ℹ️ Artık "/form %s" komutuyla Excel'e veri girişi yapabilirsiniz.

📋 Form alanlarını görmek için /formlar komutunu kullanabilirsiniz.`, form, form)
}

func FormatFormNotFound(form string) string {
	return fmt.Sprintf(`⛔️ '%s' adında bir form bulunamadı!
Mevcut formları görmek için /formlar komutunu kullanın.`, form)
}

func FormatValuesPrompt(form string, fields []string) string {
	var b strings.Builder
	for i, f := range fields {
		fmt.Fprintf(&b, "%d. %s: \n", i+1, f)
	}
	return fmt.Sprintf(`📝 '%s' Formu Veri Girişi

Lütfen form verilerini aşağıdaki formatta girin:

%s
❗️ ÖNEMLİ NOT: Bilgileri gönderirken sadece bilgileri sırasıyla yazmanız yeterlidir.
Başına numara (1., 2., 3.) eklemeyin.

❓ İptal etmek için /iptal yazabilirsiniz.`, form, b.String())
}

func bullets(items []string) string {
	lines := make([]string, len(items))
	for i, it := range items {
		lines[i] = "• " + it
	}
	return strings.Join(lines, "\n")
}

func FormatMissing(missing []string) string {
	return fmt.Sprintf(`⛔️ Eksik veri girdiniz!

Eksik Alanlar:
%s

❗️ Lütfen tüm bilgileri eksiksiz girin.`, bullets(missing))
}

func FormatExtra(extra int, fields []string) string {
	return fmt.Sprintf(`⛔️ %d adet fazla veri girdiniz!

Bu form için gerekli alanlar:

%s`, extra, bullets(fields))
}

func FormatAttachmentPrompt(field string) string {
	return fmt.Sprintf(`📎 Son olarak "%s" için dosyayı gönderin.

Kabul edilen formatlar: JPG, PNG, WEBP, PDF
❓ İptal etmek için /iptal yazabilirsiniz.`, field)
}

// ключевые слова поля с именем для квитанции
var nameFieldKeywords = []string{"isim soyisim", "ad soyad", "adı soyadı", "ad ve soyad"}

// ReceiptName — значение поля с именем, иначе первое значение
func ReceiptName(fields, values []string) string {
	for i, f := range fields {
		if i >= len(values) {
			break
		}
		lf := strings.ToLower(f)
		for _, kw := range nameFieldKeywords {
			if strings.Contains(lf, kw) {
				return values[i]
			}
		}
	}
	if len(values) > 0 {
		return values[0]
	}
	return ""
}

func FormatReceipt(id int64, form string, fields, values []string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "✅ #%d Numaralı %s Hesabı Excele işlendi. ✅\n", id, Title(form))
	if name := ReceiptName(fields, values); name != "" {
		b.WriteString(name + "\n")
	}
	b.WriteString("\n📝 Yeni veri girişi için:\n/form " + form)
	return b.String()
}

func Title(s string) string {
	if s == "" {
		return s
	}
	r := []rune(strings.ToLower(s))
	return strings.ToUpper(string(r[0])) + string(r[1:])
}

// FormatCredits печатает баланс без хвостовых нулей
func FormatCredits(c database.Credits) string {
	return c.String()
}

// FormatAmount печатает денежную сумму с точностью до копейки, без хвостовых нулей
func FormatAmount(r *big.Rat) string {
	s := r.FloatString(2)
	s = strings.TrimRight(s, "0")
	return strings.TrimSuffix(s, ".")
}

func FormatBalance(balance database.Credits) string {
	return "💰 Mevcut kullanım hakkınız: " + FormatCredits(balance)
}

type FormLine struct {
	Name   string
	Fields []string
}

func FormatForms(forms []FormLine) string {
	var b strings.Builder
	b.WriteString("📋 Mevcut Formlar:\n\n")
	for _, f := range forms {
		fmt.Fprintf(&b, "📝 %s\n🔹 Alanlar: %s\n\n", f.Name, strings.Join(f.Fields, ", "))
	}
	return strings.TrimRight(b.String(), "\n")
}

func FormatFormDeleted(form string) string {
	return fmt.Sprintf(`✅ '%s' formu başarıyla silindi.`, form)
}

func FormatNoReportData(form string, from, to string, explicit bool) string {
	if explicit {
		return fmt.Sprintf(`⛔️ Belirtilen tarih aralığında veri bulunamadı!

📅 %s - %s tarihleri arasında '%s' formuna ait veri girişi yapılmamış.`, from, to, form)
	}
	return fmt.Sprintf(`⛔️ Bugün için veri bulunamadı!

📅 '%s' formuna bugün hiç veri girişi yapılmamış.

💡 Belirli bir tarih aralığı için rapor almak isterseniz:
/rapor %s GG.AA.YYYY GG.AA.YYYY`, form, form)
}

func FormatSubmissionDeleted(id int64) string {
	return fmt.Sprintf(`✅ #%d numaralı kayıt silindi.`, id)
}

func FormatCreditGranted(adminID int64, amount *big.Rat, rights, balance database.Credits) string {
	return fmt.Sprintf(`✅ Admin bakiyesi güncellendi!

👤 Admin ID: %d
💰 Eklenen Miktar: %s₺ (%s kullanım hakkı)
💵 Güncel Kullanım Hakkı: %s`, adminID, FormatAmount(amount), FormatCredits(rights), FormatCredits(balance))
}

func FormatCreditRevoked(adminID int64, rights, balance database.Credits) string {
	return fmt.Sprintf(`✅ Admin bakiyesi güncellendi!

👤 Admin ID: %d
💰 Silinen Kullanım Hakkı: %s
💵 Güncel Kullanım Hakkı: %s`, adminID, FormatCredits(rights), FormatCredits(balance))
}

func FormatRevokeInsufficient(adminID int64, balance, rights database.Credits) string {
	return fmt.Sprintf(`⛔️ Yetersiz kullanım hakkı!

👤 Admin ID: %d
💰 Mevcut Kullanım Hakkı: %s
💸 Silinmek İstenen: %s`, adminID, FormatCredits(balance), FormatCredits(rights))
}

func FormatAdminNotFound(adminID int64) string {
	return fmt.Sprintf(`⛔️ %d ID'li bir admin bulunamadı!`, adminID)
}

func FormatAdminAdded(adminID int64, name string) string {
	return fmt.Sprintf(`✅ Admin başarıyla eklendi!

👤 Admin: %s
🆔 ID: %d`, name, adminID)
}

func FormatAdminRemoved(adminID int64) string {
	return fmt.Sprintf(`✅ %d ID'li admin silindi!`, adminID)
}

type AdminLine struct {
	ID      int64
	Name    string
	Credits database.Credits
}

func FormatAdmins(admins []AdminLine) string {
	var b strings.Builder
	b.WriteString("👥 Adminler:\n\n")
	for _, a := range admins {
		fmt.Fprintf(&b, "👤 %s (%d)\n💵 Kullanım Hakkı: %s\n\n", a.Name, a.ID, FormatCredits(a.Credits))
	}
	return strings.TrimRight(b.String(), "\n")
}

type GroupLine struct {
	ID   int64
	Name string
}

func FormatGroups(groups []GroupLine) string {
	var b strings.Builder
	b.WriteString("📂 Gruplar:\n\n")
	for _, g := range groups {
		fmt.Fprintf(&b, "🏢 %s\n🆔 %d\n\n", g.Name, g.ID)
	}
	return strings.TrimRight(b.String(), "\n")
}

func FormatGroupAdded(id int64, name string) string {
	return fmt.Sprintf(`✅ Grup başarıyla eklendi!

🏢 Grup: %s
🆔 ID: %d`, name, id)
}

func FormatGroupRemoved(id int64) string {
	return fmt.Sprintf(`✅ %d ID'li grup silindi.`, id)
}

func FormatChatID(chatID, userID int64) string {
	return fmt.Sprintf(`🔍 Sohbet ID: %d
👤 Kullanıcı ID: %d`, chatID, userID)
}

func FormatPaymentCredited(amount, currency string, rights database.Credits) string {
	return fmt.Sprintf(`✅ Ödemeniz onaylandı!

💰 Tutar: %s %s
💵 Eklenen Kullanım Hakkı: %s`, amount, strings.ToUpper(currency), FormatCredits(rights))
}

func FormatTopUpPrompt(min, unitPrice *big.Rat) string {
	return fmt.Sprintf(`💰 Bakiye Yükleme İşlemi

📝 Yüklemek istediğiniz tutarı TL cinsinden yazınız.
ℹ️ Minimum yükleme tutarı: %s₺
ℹ️ Form başı ücret: %s₺`, FormatAmount(min), FormatAmount(unitPrice))
}

func FormatTopUpBelowMin(min *big.Rat) string {
	return fmt.Sprintf(`⛔️ Minimum yükleme tutarı %s₺ olmalıdır!

📝 Lütfen %s₺ veya daha yüksek bir tutar giriniz.`, FormatAmount(min), FormatAmount(min))
}

// FormatTopUpInvoice — реквизиты созданного платежа
func FormatTopUpInvoice(amount *big.Rat, payAmount, payAddress string, rights database.Credits) string {
	return fmt.Sprintf(`💰 Ödeme Bilgileri

💵 Yüklenecek Tutar: %s₺
💵 Eklenecek Kullanım Hakkı: %s
💎 Ödenecek USDT: %s

📋 USDT (TRC20) Adresi:
%s

⚠️ Önemli Uyarılar:
• Sadece TRC20 ağı üzerinden USDT gönderiniz
• Tam olarak belirtilen miktarda USDT gönderiniz
• Ödeme adresi 20 dakika geçerlidir
• Ödemeniz onaylandığında bakiyeniz otomatik olarak yüklenecektir`, FormatAmount(amount), FormatCredits(rights), payAmount, payAddress)
}
