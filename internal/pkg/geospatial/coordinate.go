package geospatial

import (
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/samirrijal/geomatch/internal/core/domain"
)

// CoordinateFormat identifies the textual notation of a coordinate token.
type CoordinateFormat int

const (
	DecimalDegrees CoordinateFormat = iota
	DegreesMinutes
	DegreesMinutesSeconds
)

func (f CoordinateFormat) String() string {
	switch f {
	case DecimalDegrees:
		return "DD"
	case DegreesMinutes:
		return "DDM"
	case DegreesMinutesSeconds:
		return "DMS"
	default:
		return "unknown"
	}
}

// CoordinateToken is a raw token together with the format it was recognised
// as and its decimal value.
type CoordinateToken struct {
	Raw        string
	Format     CoordinateFormat
	Hemisphere byte // 'N', 'S', 'E', 'W' or 0
	Value      float64
}

// grammar is one accepted textual shape. Capture groups are, in order: sign,
// one group per numeric field, hemisphere letter.
type grammar struct {
	format CoordinateFormat
	fields int
	re     *regexp.Regexp
}

// Separators between numeric groups are any run of characters other than
// digits, the decimal point and hemisphere letters; the point always belongs
// to a number and a hemisphere letter may only end the token. DMS also takes
// an "s" seconds marker before the hemisphere, as in 52d31m12sN.
//
// Grammars are tried in this order and the first whole-token match wins.
// The most specific shape goes first so that a DMS token is never read as
// DDM with trailing junk, while the dot rule keeps "52.5200N" out of DDM.
var coordinateGrammars = []grammar{
	{
		format: DegreesMinutesSeconds,
		fields: 3,
		re:     regexp.MustCompile(`^([+-])?\s*(\d+)[^\d.NSEWnsew]+(\d+)[^\d.NSEWnsew]+(\d+(?:\.\d+)?)[^\d.NSEWnsew]*(?:s[^\d.NSEWnsew]*)?([NSEWnsew])$`),
	},
	{
		format: DegreesMinutes,
		fields: 2,
		re:     regexp.MustCompile(`^([+-])?\s*(\d+)[^\d.NSEWnsew]+(\d+(?:\.\d+)?)[^\d.NSEWnsew]*([NSEWnsew])$`),
	},
	{
		format: DecimalDegrees,
		fields: 1,
		re:     regexp.MustCompile(`^([+-])?\s*(\d+(?:\.\d*)?|\.\d+)[^\d.A-Za-z]*([NSEWnsew])?$`),
	},
}

// ClassifyCoordinate recognises the format of text and converts it to signed
// decimal degrees. A hemisphere letter is authoritative: S and W yield a
// negative value and N and E a positive one, whatever numeric sign precedes.
func ClassifyCoordinate(text string) (CoordinateToken, error) {
	raw := strings.TrimSpace(text)
	for _, g := range coordinateGrammars {
		m := g.re.FindStringSubmatch(raw)
		if m == nil {
			continue
		}
		value, ok := sexagesimal(m[2 : 2+g.fields])
		if !ok {
			return CoordinateToken{}, &domain.FormatError{Raw: text}
		}

		tok := CoordinateToken{Raw: text, Format: g.format}
		if h := m[2+g.fields]; h != "" {
			tok.Hemisphere = strings.ToUpper(h)[0]
			value = math.Abs(value)
			if tok.Hemisphere == 'S' || tok.Hemisphere == 'W' {
				value = -value
			}
		} else if m[1] == "-" {
			value = -value
		}
		tok.Value = value
		return tok, nil
	}
	return CoordinateToken{}, &domain.FormatError{Raw: text}
}

// ParseCoordinate converts one coordinate token to signed decimal degrees.
func ParseCoordinate(text string) (float64, error) {
	tok, err := ClassifyCoordinate(text)
	if err != nil {
		return 0, err
	}
	return tok.Value, nil
}

// ParsePoint parses a latitude and a longitude token into a validated point.
// A hemisphere letter on the wrong axis (E/W on a latitude, N/S on a
// longitude) is a FormatError.
func ParsePoint(lat, lon string) (domain.GeoPoint, error) {
	latTok, err := ClassifyCoordinate(lat)
	if err != nil {
		return domain.GeoPoint{}, err
	}
	if latTok.Hemisphere == 'E' || latTok.Hemisphere == 'W' {
		return domain.GeoPoint{}, &domain.FormatError{Raw: lat}
	}
	lonTok, err := ClassifyCoordinate(lon)
	if err != nil {
		return domain.GeoPoint{}, err
	}
	if lonTok.Hemisphere == 'N' || lonTok.Hemisphere == 'S' {
		return domain.GeoPoint{}, &domain.FormatError{Raw: lon}
	}

	p := domain.GeoPoint{Lat: latTok.Value, Lon: lonTok.Value}
	if err := p.Validate(); err != nil {
		return domain.GeoPoint{}, err
	}
	return p, nil
}

// sexagesimal folds degrees, minutes and seconds into decimal degrees.
// Minutes and seconds must be below 60.
func sexagesimal(fields []string) (float64, bool) {
	var total float64
	scale := 1.0
	for i, f := range fields {
		v, err := strconv.ParseFloat(f, 64)
		if err != nil {
			return 0, false
		}
		if i > 0 && v >= 60 {
			return 0, false
		}
		total += v / scale
		scale *= 60
	}
	return total, true
}
