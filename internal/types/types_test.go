package types

import (
	"strings"
	"testing"

	"github.com/google/uuid"
)

func TestFreelancerRequest_Validate(t *testing.T) {
	tests := []struct {
		name    string
		request FreelancerRequest
		wantErr bool
		errMsg  string
	}{
		{
			name:    "valid request",
			request: FreelancerRequest{FreelancerID: uuid.NewString()},
		},
		{
			name:    "empty id",
			request: FreelancerRequest{},
			wantErr: true,
			errMsg:  "freelancer_id is required",
		},
		{
			name:    "malformed id",
			request: FreelancerRequest{FreelancerID: "nanny-1"},
			wantErr: true,
			errMsg:  "freelancer_id must be a uuid",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.request.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("FreelancerRequest.Validate() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if tt.wantErr && err != nil && tt.errMsg != "" && !strings.Contains(err.Error(), tt.errMsg) {
				t.Errorf("FreelancerRequest.Validate() error message = %v, want to contain %v", err, tt.errMsg)
			}
		})
	}
}

func TestConfirmRequest_Validate(t *testing.T) {
	short := "weekday mornings only"
	long := strings.Repeat("x", MaxNoteLength+1)

	if err := (&ConfirmRequest{}).Validate(); err != nil {
		t.Errorf("empty request should be valid, got %v", err)
	}
	if err := (&ConfirmRequest{Note: &short}).Validate(); err != nil {
		t.Errorf("short note should be valid, got %v", err)
	}
	if err := (&ConfirmRequest{Note: &long}).Validate(); err == nil {
		t.Error("long note should be rejected")
	}

	// the limit counts characters, not bytes
	accented := strings.Repeat("é", MaxNoteLength)
	if err := (&ConfirmRequest{Note: &accented}).Validate(); err != nil {
		t.Errorf("note of %d two-byte characters should be valid, got %v", MaxNoteLength, err)
	}
	accented += "é"
	if err := (&ConfirmRequest{Note: &accented}).Validate(); err == nil {
		t.Error("note one character over the limit should be rejected")
	}
}
