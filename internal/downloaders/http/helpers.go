package rangehttp

import (
	"fmt"
	"mime"
	"net/url"
	"path"
	"regexp"
	"strconv"
	"strings"
)

var filenameRegex = regexp.MustCompile(`[^a-zA-Z0-9_\-\. ]+`)

// parseContentLength accepts only a plain base-10 non-negative integer.
func parseContentLength(value string) (int64, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, ErrMissingLengthHeader
	}
	n, err := strconv.ParseUint(value, 10, 63)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidLengthValue, value)
	}
	return int64(n), nil
}

// ParseContentRange parses a Content-Range header value of the form
// "bytes start-end/total". Total is -1 when the server sends "*".
func ParseContentRange(header string) (start, end, total int64, err error) {
	rest, ok := strings.CutPrefix(strings.TrimSpace(header), "bytes ")
	if !ok {
		return 0, 0, 0, fmt.Errorf("invalid Content-Range format: %s", header)
	}
	span, size, ok := strings.Cut(rest, "/")
	if !ok {
		return 0, 0, 0, fmt.Errorf("invalid Content-Range format: %s", header)
	}
	first, last, ok := strings.Cut(span, "-")
	if !ok {
		return 0, 0, 0, fmt.Errorf("invalid Content-Range format: %s", header)
	}
	if start, err = strconv.ParseInt(first, 10, 64); err != nil {
		return 0, 0, 0, fmt.Errorf("invalid start byte: %w", err)
	}
	if end, err = strconv.ParseInt(last, 10, 64); err != nil {
		return 0, 0, 0, fmt.Errorf("invalid end byte: %w", err)
	}
	if size == "*" {
		return start, end, -1, nil
	}
	if total, err = strconv.ParseInt(size, 10, 64); err != nil {
		return 0, 0, 0, fmt.Errorf("invalid total bytes: %w", err)
	}
	return start, end, total, nil
}

func filenameFromDisposition(contentDisposition string) string {
	if contentDisposition == "" {
		return ""
	}
	_, params, err := mime.ParseMediaType(contentDisposition)
	if err != nil {
		return ""
	}
	// mime decodes filename* into filename
	if fn := params["filename"]; fn != "" {
		return filenameRegex.ReplaceAllString(fn, "_")
	}
	return ""
}

func filenameFromURL(link string) string {
	parsedURL, err := url.Parse(link)
	if err != nil {
		return ""
	}
	name := path.Base(parsedURL.Path)
	if name == "." || name == "/" {
		return ""
	}
	return filenameRegex.ReplaceAllString(name, "_")
}
