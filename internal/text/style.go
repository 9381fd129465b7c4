package text

import "fmt"

// Style represents font style variations.
type Style int

const (
	// StyleRegular is the regular/normal font style.
	StyleRegular Style = iota
	// StyleBold is the bold font style.
	StyleBold
	// StyleItalic is the italic font style.
	StyleItalic
	// StyleBoldItalic is the bold and italic font style.
	StyleBoldItalic
)

// Styles lists every style in a fixed order.
var Styles = []Style{StyleRegular, StyleBold, StyleItalic, StyleBoldItalic}

// String returns the string representation of a Style.
func (s Style) String() string {
	switch s {
	case StyleRegular:
		return "regular"
	case StyleBold:
		return "bold"
	case StyleItalic:
		return "italic"
	case StyleBoldItalic:
		return "bold-italic"
	default:
		return "unknown"
	}
}

// ParseStyle parses a string into a Style.
func ParseStyle(s string) (Style, error) {
	switch s {
	case "regular", "normal", "":
		return StyleRegular, nil
	case "bold":
		return StyleBold, nil
	case "italic":
		return StyleItalic, nil
	case "bold-italic", "bolditalic", "bold_italic":
		return StyleBoldItalic, nil
	default:
		return StyleRegular, fmt.Errorf("unknown font style: %s", s)
	}
}
