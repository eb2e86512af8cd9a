package reports

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseIdentifiers(t *testing.T) {
	tests := []struct {
		name      string
		websiteID string
		reportID  string
		wantSite  int64
		wantRep   int64
		badField  string
	}{
		{name: "valid", websiteID: "12", reportID: "7", wantSite: 12, wantRep: 7},
		{name: "zero is allowed", websiteID: "0", reportID: "0"},
		{name: "leading zeros", websiteID: "007", reportID: "1", wantSite: 7, wantRep: 1},
		{name: "non numeric website", websiteID: "abc", reportID: "1", badField: FieldWebsiteID},
		{name: "empty website", websiteID: "", reportID: "1", badField: FieldWebsiteID},
		{name: "empty report", websiteID: "1", reportID: "", badField: FieldReportID},
		{name: "negative", websiteID: "-1", reportID: "1", badField: FieldWebsiteID},
		{name: "plus sign", websiteID: "1", reportID: "+1", badField: FieldReportID},
		{name: "decimal", websiteID: "1.5", reportID: "1", badField: FieldWebsiteID},
		{name: "whitespace", websiteID: " 1", reportID: "1", badField: FieldWebsiteID},
		{name: "trailing garbage", websiteID: "12abc", reportID: "1", badField: FieldWebsiteID},
		{name: "overflow", websiteID: "1", reportID: "99999999999999999999", badField: FieldReportID},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			site, rep, err := ParseIdentifiers(tt.websiteID, tt.reportID)
			if tt.badField != "" {
				var invalid *InvalidIdentifierError
				require.True(t, errors.As(err, &invalid), "expected InvalidIdentifierError, got %v", err)
				assert.Equal(t, tt.badField, invalid.Field)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantSite, site)
			assert.Equal(t, tt.wantRep, rep)
		})
	}
}
