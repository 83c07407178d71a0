package typeid

import (
	"strings"
	"testing"
)

func TestNewCarriesPrefix(t *testing.T) {
	for prefix, gen := range map[string]func() string{
		PrefixUser:    NewUserID,
		PrefixProject: NewProjectID,
		PrefixObject:  NewObjectID,
		PrefixAsset:   NewAssetID,
		PrefixExport:  NewExportID,
	} {
		id := gen()
		if !strings.HasPrefix(id, prefix+"_") {
			t.Errorf("id %q lacks prefix %q", id, prefix)
		}
		if err := Validate(id, prefix); err != nil {
			t.Errorf("Validate(%q): %v", id, err)
		}
	}
}

func TestValidateRejects(t *testing.T) {
	if err := Validate(NewUserID(), PrefixProject); err == nil {
		t.Error("user id accepted as project id")
	}
	if err := Validate("proj_missing", PrefixProject); err == nil {
		t.Error("malformed id accepted")
	}
	if NewProjectID() == NewProjectID() {
		t.Error("ids repeat")
	}
}
