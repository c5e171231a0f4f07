package export

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

var unsafeFilenameChars = regexp.MustCompile(`[^a-zA-Z0-9]`)

// Filename builds "{title}_{dpi}dpi_{YYYY-MM-DD}.{format}". Every character
// of the title other than ASCII letters and digits becomes an underscore.
func Filename(title string, dpi float64, f Format, now time.Time) string {
	name := strings.ToLower(unsafeFilenameChars.ReplaceAllString(title, "_"))
	if name == "" {
		name = "cover"
	}
	return name + "_" + strconv.FormatFloat(dpi, 'f', -1, 64) + "dpi_" + now.UTC().Format(time.DateOnly) + "." + string(f)
}
