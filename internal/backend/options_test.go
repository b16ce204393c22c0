package backend

import (
	"testing"

	"github.com/christopherklint97/taxiclock/internal/timesheet"
)

func TestParseURL(t *testing.T) {
	tests := []struct {
		raw     string
		want    Options
		wantErr bool
	}{
		{
			raw:  "clockify://?token=abc&workspace=ws1",
			want: Options{Token: "abc", Workspace: "ws1"},
		},
		{
			raw:  "clockify://?token=abc&timezone=Europe%2FZurich",
			want: Options{Token: "abc", Timezone: "Europe/Zurich"},
		},
		{
			raw:  "clockify://abc@/",
			want: Options{Token: "abc"},
		},
		{
			raw:  "clockify://?token=abc&base_url=http%3A%2F%2Flocalhost%3A8080%2Fapi%2Fv1",
			want: Options{Token: "abc", BaseURL: "http://localhost:8080/api/v1"},
		},
		{raw: "tempo://?token=abc", wantErr: true},
		{raw: "::not a url", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, err := ParseURL(tt.raw)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error, got %+v", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseURL: %v", err)
			}
			if got != tt.want {
				t.Errorf("ParseURL = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestOptionsMerge(t *testing.T) {
	explicit := Options{Token: "explicit", Timezone: "UTC"}
	fromURL := Options{Token: "url", Workspace: "ws", Timezone: "CET"}

	got := explicit.Merge(fromURL)
	want := Options{Token: "explicit", Workspace: "ws", Timezone: "UTC"}
	if got != want {
		t.Errorf("Merge = %+v, want %+v", got, want)
	}
}

func TestOptionsLocation(t *testing.T) {
	loc, err := Options{}.Location()
	if err != nil || loc.String() != DefaultTimezone {
		t.Errorf("default location = %v, %v", loc, err)
	}
	loc, err = Options{Timezone: "Europe/Zurich"}.Location()
	if err != nil || loc.String() != "Europe/Zurich" {
		t.Errorf("Europe/Zurich = %v, %v", loc, err)
	}
	if _, err := (Options{Timezone: "Nowhere/Special"}).Location(); !timesheet.IsFatal(err) {
		t.Errorf("expected fatal error, got %v", err)
	}
}
