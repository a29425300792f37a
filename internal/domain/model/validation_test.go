package model

import "testing"

func TestValidateSlug(t *testing.T) {
	tests := []struct {
		slug    string
		wantErr bool
	}{
		{"garage-central", false},
		{"g1", false},
		{"", true},
		{"-garage", true},
		{"garage-", true},
		{"Garage", true},
		{"garage.central", true},
		{"garage_central", true},
	}

	for _, tt := range tests {
		t.Run(tt.slug, func(t *testing.T) {
			err := ValidateSlug(tt.slug)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateSlug(%q) error = %v, wantErr %v", tt.slug, err, tt.wantErr)
			}
		})
	}
}

func TestSlugify(t *testing.T) {
	tests := []struct {
		name string
		want string
	}{
		{"Garage Central", "garage-central"},
		{"Garage Métropole", "garage-metropole"},
		{"  Auto  Réparation & Fils ", "auto-reparation-fils"},
		{"Çà et là", "ca-et-la"},
		{"!!!", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Slugify(tt.name); got != tt.want {
				t.Errorf("Slugify(%q) = %q, ожидается %q", tt.name, got, tt.want)
			}
		})
	}
}

func TestIsValidColor(t *testing.T) {
	if !IsValidColor("#1a2B3c") {
		t.Error("IsValidColor(#1a2B3c) = false, ожидается true")
	}
	for _, c := range []string{"", "1a2b3c", "#fff", "#gggggg"} {
		if IsValidColor(c) {
			t.Errorf("IsValidColor(%q) = true, ожидается false", c)
		}
	}
}

func TestUserHasOrganisation(t *testing.T) {
	var nilUser *User
	if nilUser.HasOrganisation() {
		t.Error("nil-пользователь не должен иметь организацию")
	}
	empty := ""
	if (&User{OrganisationID: &empty}).HasOrganisation() {
		t.Error("пустой organisation_id не считается организацией")
	}
	org := "org-1"
	if !(&User{OrganisationID: &org}).HasOrganisation() {
		t.Error("HasOrganisation() = false при заданном organisation_id")
	}
}
