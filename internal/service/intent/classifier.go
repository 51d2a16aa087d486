// internal/service/intent/classifier.go
package intent

import (
	"regexp"
	"strings"
)

// Turn is the top-level classification of one inbound message. Every
// message is classified independently per turn; conversation history only
// feeds in through the pending-flow flag.
type Turn string

const (
	TurnBotEcho      Turn = "BOT_ECHO"
	TurnDuplicate    Turn = "DUPLICATE"
	TurnStaffCommand Turn = "STAFF_COMMAND"
	TurnCustomer     Turn = "CUSTOMER_TURN"
)

// Staff sub-intents.
type StaffIntent string

const (
	StaffUpload       StaffIntent = "upload"
	StaffInventory    StaffIntent = "inventory"
	StaffStats        StaffIntent = "stats"
	StaffStatusUpdate StaffIntent = "status_update"
	StaffEdit         StaffIntent = "edit"
	StaffGreeting     StaffIntent = "greeting"
)

// Customer sub-intents.
type CustomerIntent string

const (
	CustomerGreeting  CustomerIntent = "greeting"
	CustomerVehicle   CustomerIntent = "vehicle_inquiry"
	CustomerPrice     CustomerIntent = "price_inquiry"
	CustomerTestDrive CustomerIntent = "test_drive"
	CustomerPhotoOK   CustomerIntent = "photo_confirmation"
	CustomerNegative  CustomerIntent = "negative"
	CustomerClosing   CustomerIntent = "closing"
	CustomerUnknown   CustomerIntent = "unknown"
)

var plateRe = regexp.MustCompile(`(?i)\b([A-Z]{1,2}\s?\d{1,4}\s?[A-Z]{1,3})\b`)

// ClassifyStaff matches the staff command grammar. The second return value
// reports whether the text matched at all; unmatched staff messages fall
// through to the customer path (hybrid mode).
func ClassifyStaff(text string, hasMedia bool) (StaffIntent, bool) {
	t := normalize(text)

	switch {
	case hasMedia, hasWord(t, "upload"):
		return StaffUpload, true
	case hasWord(t, "inventory", "inventori", "stok mobil", "daftar mobil", "list mobil"):
		return StaffInventory, true
	case hasWord(t, "stats", "statistik", "laporan", "report"):
		return StaffStats, true
	case hasWord(t, "terjual", "sold", "booking", "booked") && plateRe.MatchString(text):
		return StaffStatusUpdate, true
	case hasWord(t, "edit harga", "ubah harga", "edit"):
		return StaffEdit, true
	case isGreeting(t):
		return StaffGreeting, true
	}

	return "", false
}

// ClassifyCustomer maps message text to a customer sub-intent.
func ClassifyCustomer(text string) CustomerIntent {
	t := normalize(text)

	switch {
	case t == "":
		return CustomerUnknown
	case hasWord(t, "test drive", "testdrive", "coba mobil", "coba unit"):
		return CustomerTestDrive
	case hasWord(t, "harga", "berapa", "brp", "nego", "kredit", "cicilan", "dp", "angsuran"):
		return CustomerPrice
	case hasWord(t, "foto", "fotonya", "gambar", "photo", "pic"):
		return CustomerPhotoOK
	case hasWord(t, "tidak jadi", "gak jadi", "nggak jadi", "batal", "tidak minat", "ga minat"):
		return CustomerNegative
	case hasWord(t, "terima kasih", "makasih", "thanks", "deal", "oke siap"):
		return CustomerClosing
	case mentionsVehicle(t):
		return CustomerVehicle
	case isGreeting(t):
		return CustomerGreeting
	}

	return CustomerUnknown
}

// HasInterestSignal reports whether the sub-intent expresses buying
// interest (price, stock or credit) for lead qualification.
func HasInterestSignal(ci CustomerIntent) bool {
	switch ci {
	case CustomerVehicle, CustomerPrice, CustomerTestDrive:
		return true
	}
	return false
}

// Plate extracts a number plate from staff command text, if present.
func Plate(text string) string {
	m := plateRe.FindString(text)
	return strings.ToUpper(strings.ReplaceAll(m, " ", ""))
}

// vehicleModels covers the models dealers in this market actually trade.
// Interest extraction matches on these plus generic unit words.
var vehicleModels = []string{
	"avanza", "xenia", "innova", "fortuner", "rush", "terios", "calya", "sigra",
	"brio", "jazz", "hrv", "hr-v", "crv", "cr-v", "brv", "br-v", "mobilio",
	"ertiga", "xl7", "carry", "pajero", "xpander", "livina", "serena",
	"agya", "ayla", "raize", "rocky", "yaris", "vios", "camry", "alphard",
}

func mentionsVehicle(t string) bool {
	if VehicleRef(t) != "" {
		return true
	}
	return hasWord(t, "mobil", "unit", "stok", "ready")
}

// VehicleRef returns the mentioned model name, or "" when none matches.
func VehicleRef(text string) string {
	t := normalize(text)
	for _, m := range vehicleModels {
		if hasWord(t, m) {
			return m
		}
	}
	return ""
}

// ExtractName pulls a self-introduced name ("saya Budi", "nama saya Budi
// dari Jakarta") and an optional city out of message text. Returns empty
// strings when nothing plausible is present.
func ExtractName(text string) (name, city string) {
	m := nameRe.FindStringSubmatch(strings.TrimSpace(text))
	if m == nil {
		return "", ""
	}
	name = strings.TrimSpace(m[1])
	city = strings.TrimSpace(m[2])

	// A "name" that is itself a greeting, filler or interest word is noise.
	if isGreeting(normalize(name)) || VehicleRef(name) != "" || fillerWords[normalize(name)] {
		return "", city
	}
	return name, city
}

var fillerWords = map[string]bool{
	"mau": true, "ingin": true, "tanya": true, "nanya": true, "mo": true,
	"lagi": true, "sedang": true, "tidak": true, "cuma": true, "hanya": true,
	"cari": true, "nyari": true, "butuh": true,
}

var nameRe = regexp.MustCompile(`(?i)(?:nama\s+saya|saya|aku|ini)\s+([A-Za-z][A-Za-z .']{1,30}?)(?:\s+dari\s+([A-Za-z][A-Za-z .]{1,30}?))?(?:\s*[,.]|\s+mau\b|\s+ingin\b|\s+tanya\b|$)`)

func isGreeting(t string) bool {
	return hasWord(t,
		"halo", "hallo", "hai", "hi", "hello",
		"selamat pagi", "selamat siang", "selamat sore", "selamat malam",
		"pagi", "siang", "sore", "malam", "assalamualaikum", "permisi",
	)
}

func normalize(text string) string {
	return strings.Join(strings.Fields(strings.ToLower(text)), " ")
}

func hasWord(t string, words ...string) bool {
	padded := " " + t + " "
	for _, w := range words {
		if strings.Contains(padded, " "+w+" ") {
			return true
		}
		if strings.Contains(w, " ") && strings.Contains(t, w) {
			return true
		}
	}
	return false
}
