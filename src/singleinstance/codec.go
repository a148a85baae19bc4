package singleinstance

import (
	"errors"
	"strconv"
	"strings"
)

const requestPrefix = "CAPTURE "

var errMalformedRequest = errors.New("malformed request")

// encodeRequest renders req as one line: CAPTURE followed by quoted fields.
func encodeRequest(req Request) string {
	var b strings.Builder
	b.WriteString(requestPrefix)
	b.WriteString(strconv.Quote(req.Mode))
	for _, a := range req.Args {
		b.WriteByte(' ')
		b.WriteString(strconv.Quote(a))
	}
	b.WriteByte('\n')
	return b.String()
}

func parseRequest(line string) (Request, error) {
	line = strings.TrimRight(line, "\r\n")
	if !strings.HasPrefix(line, requestPrefix) {
		return Request{}, errMalformedRequest
	}
	rest := line[len(requestPrefix):]
	var fields []string
	for rest != "" {
		q, err := strconv.QuotedPrefix(rest)
		if err != nil {
			return Request{}, errMalformedRequest
		}
		s, err := strconv.Unquote(q)
		if err != nil {
			return Request{}, errMalformedRequest
		}
		fields = append(fields, s)
		rest = strings.TrimPrefix(rest[len(q):], " ")
	}
	if len(fields) == 0 || fields[0] == "" {
		return Request{}, errMalformedRequest
	}
	return Request{Mode: fields[0], Args: fields[1:]}, nil
}
