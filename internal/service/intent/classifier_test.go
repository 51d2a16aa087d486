package intent

import "testing"

func TestClassifyStaff(t *testing.T) {
	cases := []struct {
		text     string
		hasMedia bool
		want     StaffIntent
		matched  bool
	}{
		{"inventory", false, StaffInventory, true},
		{"list mobil dong", false, StaffInventory, true},
		{"stats", false, StaffStats, true},
		{"laporan bulan ini", false, StaffStats, true},
		{"terjual B1234CD", false, StaffStatusUpdate, true},
		{"edit harga B1234CD 150jt", false, StaffEdit, true},
		{"", true, StaffUpload, true},
		{"upload unit baru", false, StaffUpload, true},
		{"pagi", false, StaffGreeting, true},
		{"berapa harga avanza sekarang?", false, "", false},
	}
	for _, tc := range cases {
		got, matched := ClassifyStaff(tc.text, tc.hasMedia)
		if got != tc.want || matched != tc.matched {
			t.Errorf("ClassifyStaff(%q, %v) = (%q, %v), want (%q, %v)",
				tc.text, tc.hasMedia, got, matched, tc.want, tc.matched)
		}
	}
}

func TestClassifyCustomer(t *testing.T) {
	cases := []struct {
		text string
		want CustomerIntent
	}{
		{"halo", CustomerGreeting},
		{"Selamat pagi", CustomerGreeting},
		{"saya Budi dari Jakarta, mau tanya Avanza", CustomerVehicle},
		{"berapa harga brio?", CustomerPrice},
		{"bisa kredit dp 20 juta?", CustomerPrice},
		{"boleh test drive besok?", CustomerTestDrive},
		{"kirim foto dong", CustomerPhotoOK},
		{"gak jadi deh", CustomerNegative},
		{"oke terima kasih", CustomerClosing},
		{"asdf qwerty", CustomerUnknown},
		{"", CustomerUnknown},
	}
	for _, tc := range cases {
		if got := ClassifyCustomer(tc.text); got != tc.want {
			t.Errorf("ClassifyCustomer(%q) = %q, want %q", tc.text, got, tc.want)
		}
	}
}

func TestExtractName(t *testing.T) {
	cases := []struct {
		text     string
		wantName string
		wantCity string
	}{
		{"saya Budi dari Jakarta, mau tanya Avanza", "Budi", "Jakarta"},
		{"nama saya Siti Rahma", "Siti Rahma", ""},
		{"halo", "", ""},
		{"saya mau tanya avanza", "", ""},
		{"saya 081234567890", "", ""},
	}
	for _, tc := range cases {
		name, city := ExtractName(tc.text)
		if name != tc.wantName || city != tc.wantCity {
			t.Errorf("ExtractName(%q) = (%q, %q), want (%q, %q)",
				tc.text, name, city, tc.wantName, tc.wantCity)
		}
	}
}

func TestVehicleRefAndPlate(t *testing.T) {
	if got := VehicleRef("mau tanya Avanza bekas"); got != "avanza" {
		t.Errorf("VehicleRef = %q, want avanza", got)
	}
	if got := VehicleRef("ada apa saja?"); got != "" {
		t.Errorf("VehicleRef = %q, want empty", got)
	}
	if got := Plate("terjual B 1234 CD"); got != "B1234CD" {
		t.Errorf("Plate = %q, want B1234CD", got)
	}
}

func TestHasInterestSignal(t *testing.T) {
	if !HasInterestSignal(CustomerPrice) || !HasInterestSignal(CustomerVehicle) {
		t.Error("price and vehicle inquiries should carry an interest signal")
	}
	if HasInterestSignal(CustomerGreeting) || HasInterestSignal(CustomerUnknown) {
		t.Error("greeting and unknown must not carry an interest signal")
	}
}
