package extraction

import (
	"regexp"
	"strings"
)

// YextAddress is the postal address carried by a Yext Knowledge Tags embed.
type YextAddress struct {
	Line1       string
	Line2       string
	City        string
	Region      string
	PostalCode  string
	CountryCode string
}

// String formats the address as "line1, line2, City, ST ZIP".
func (a YextAddress) String() string {
	locality := strings.Join(nonEmpty(a.City, strings.TrimSpace(a.Region+" "+a.PostalCode)), ", ")
	return strings.Join(nonEmpty(a.Line1, a.Line2, locality), ", ")
}

// YextInfo is the business data serialized in a Yext Knowledge Tags embed script.
type YextInfo struct {
	Name        string
	Description string
	Address     YextAddress
	Phone       string
	Email       string
	HoursText   string
}

// YextFields reads the "key":"value" pairs of a Yext embed script. Each field tries its
// known key aliases in order; absent fields stay empty.
func YextFields(js string) YextInfo {
	get := func(keys ...string) string {
		for _, k := range keys {
			if v := yextValue(js, k); v != "" {
				return v
			}
		}
		return ""
	}
	return YextInfo{
		Name:        get("name", "businessName"),
		Description: get("description"),
		Address: YextAddress{
			Line1:       get("address.line1", "address1"),
			Line2:       get("address.line2", "address2"),
			City:        get("address.city", "city"),
			Region:      get("address.region", "region"),
			PostalCode:  get("address.postalCode", "zip"),
			CountryCode: get("address.countryCode", "countryCode"),
		},
		Phone:     strings.TrimSpace(get("mainPhone", "phone")),
		Email:     strings.TrimSpace(get("email", "emails[0]")),
		HoursText: get("hoursText", "additionalHoursText", "hours", "hours-text"),
	}
}

var yextUnescape = strings.NewReplacer(`\/`, "/", `\n`, "\n", `\"`, `"`)

func yextValue(js, key string) string {
	re := regexp.MustCompile(`"` + regexp.QuoteMeta(key) + `"\s*:\s*"([^"\\]*(?:\\.[^"\\]*)*)"`)
	m := re.FindStringSubmatch(js)
	if m == nil {
		return ""
	}
	return yextUnescape.Replace(m[1])
}
