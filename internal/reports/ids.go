package reports

import "strconv"

const (
	FieldWebsiteID = "websiteId"
	FieldReportID  = "reportId"
)

// ParseIdentifiers validates the externally supplied website and report ids.
// Only plain decimal digits are accepted: signs, spaces, decimals and values
// that overflow int64 are rejected instead of being coerced.
func ParseIdentifiers(websiteID, reportID string) (int64, int64, error) {
	wid, err := parseID(FieldWebsiteID, websiteID)
	if err != nil {
		return 0, 0, err
	}
	rid, err := parseID(FieldReportID, reportID)
	if err != nil {
		return 0, 0, err
	}
	return wid, rid, nil
}

func parseID(field, raw string) (int64, error) {
	if raw == "" {
		return 0, &InvalidIdentifierError{Field: field, Value: raw}
	}
	for i := 0; i < len(raw); i++ {
		if raw[i] < '0' || raw[i] > '9' {
			return 0, &InvalidIdentifierError{Field: field, Value: raw}
		}
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, &InvalidIdentifierError{Field: field, Value: raw}
	}
	return id, nil
}
