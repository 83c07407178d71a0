package plan

import (
	"reflect"
	"strings"
	"testing"
)

func TestHasAccess(t *testing.T) {
	free := NewPolicy(TierFree, DefaultLimits)
	pro := NewPolicy(TierPro, DefaultLimits)

	tests := []struct {
		tool   Tool
		freeOK bool
		proOK  bool
	}{
		{ToolResize, true, true},
		{ToolCrop, true, true},
		{ToolAdjust, true, true},
		{ToolText, true, true},
		{ToolBackground, false, true},
		{ToolAIExtender, false, true},
		{ToolAIEdit, false, true},
		{Tool("lasso"), false, false},
	}
	for _, tt := range tests {
		t.Run(string(tt.tool), func(t *testing.T) {
			if got := free.HasAccess(tt.tool); got != tt.freeOK {
				t.Errorf("free.HasAccess = %v, want %v", got, tt.freeOK)
			}
			if got := pro.HasAccess(tt.tool); got != tt.proOK {
				t.Errorf("pro.HasAccess = %v, want %v", got, tt.proOK)
			}
		})
	}
}

func TestRestrictedTools(t *testing.T) {
	want := []Tool{ToolBackground, ToolAIExtender, ToolAIEdit}
	if got := NewPolicy(TierFree, DefaultLimits).RestrictedTools(); !reflect.DeepEqual(got, want) {
		t.Errorf("free restricted = %v, want %v", got, want)
	}
	if got := NewPolicy(TierPro, DefaultLimits).RestrictedTools(); len(got) != 0 {
		t.Errorf("pro restricted = %v", got)
	}
}

func TestQuotas(t *testing.T) {
	free := NewPolicy(TierFree, DefaultLimits)
	for n := 0; n < 3; n++ {
		if !free.CanCreateProject(n) {
			t.Errorf("free CanCreateProject(%d) = false", n)
		}
	}
	if free.CanCreateProject(3) {
		t.Error("free CanCreateProject(3) = true")
	}
	if !free.CanExport(19) || free.CanExport(20) {
		t.Error("free export limit is not 20")
	}

	pro := NewPolicy(TierPro, DefaultLimits)
	if !pro.CanCreateProject(1000) || !pro.CanExport(1000) {
		t.Error("pro should be unlimited")
	}

	custom := NewPolicy(TierFree, Limits{Projects: 1, Exports: 0})
	if custom.CanCreateProject(1) || custom.CanExport(0) {
		t.Error("custom limits ignored")
	}
}

func TestParseTier(t *testing.T) {
	if ParseTier("pro") != TierPro || ParseTier("free_user") != TierFree || ParseTier("") != TierFree {
		t.Error("ParseTier mapping wrong")
	}
}

func TestReasons(t *testing.T) {
	if r := DenialReason(ToolAIEdit); !strings.HasPrefix(r, "AI Editor is only available") {
		t.Errorf("DenialReason = %q", r)
	}
	if r := ProjectLimitReason(3); !strings.Contains(r, "limit of 3 projects") {
		t.Errorf("ProjectLimitReason = %q", r)
	}
}
