package alpr

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRegistryValidatorStatusMapping(t *testing.T) {
	t.Parallel()

	v := NewRegistryValidator()

	tests := []struct {
		name       string
		plate      string
		wantStatus PlateStatus
		wantValid  bool
	}{
		{"digit 9 is valid", "XYZ-789", StatusValid, true},
		{"digit 8 is valid", "AB-128", StatusValid, true},
		{"digit 7 is valid", "PLATE-7", StatusValid, true},
		{"digit 6 is expired", "ABC-456", StatusExpired, false},
		{"digit 5 is expired", "XY-005", StatusExpired, false},
		{"digit 4 is expired", "AAA-444", StatusExpired, false},
		{"digit 3 is suspended", "ABC-123", StatusSuspended, false},
		{"digit 2 is suspended", "QQ-002", StatusSuspended, false},
		{"digit 1 is other", "ABC-001", StatusOther, false},
		{"digit 0 is other", "ABC-100", StatusOther, false},
		{"trailing letter is other", "123-ABC", StatusOther, false},
		{"trailing dash is other", "ABC-", StatusOther, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := v.Validate(tt.plate)
			assert.Equal(t, tt.wantStatus, got.Status)
			assert.Equal(t, tt.wantValid, got.IsValid)
			assert.NotEmpty(t, got.Details)
		})
	}
}

func TestRegistryValidatorRegionByLength(t *testing.T) {
	t.Parallel()

	v := NewRegistryValidator()

	tests := []struct {
		plate      string
		wantRegion string
	}{
		{"AB-123", "EU"},  // 6 chars
		{"ABC-123", "US"}, // 7 chars
		{"A9", "EU"},
		{"LONGPLATE99", "US"},
	}

	for _, tt := range tests {
		t.Run(tt.plate, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.wantRegion, v.Validate(tt.plate).Region)
		})
	}
}

func TestRegistryValidatorEmptyPlate(t *testing.T) {
	t.Parallel()

	got := NewRegistryValidator().Validate("")
	assert.False(t, got.IsValid)
	assert.Equal(t, StatusOther, got.Status)
	assert.NotEmpty(t, got.Details)
}
