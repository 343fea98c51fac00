package spatial

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
)

// ErrInvalidGeometry is returned by the strict decoders and by encoders given
// too few points
var ErrInvalidGeometry = errors.New("invalid geometry")

var (
	pointPattern      = regexp.MustCompile(`(?i)^\s*POINT\s*\(\s*(\S+)\s+(\S+)\s*\)\s*$`)
	lineStringPattern = regexp.MustCompile(`(?i)^\s*LINESTRING\s*\((.*)\)\s*$`)
	polygonPattern    = regexp.MustCompile(`(?i)^\s*POLYGON\s*\(\s*\((.*)\)\s*\)\s*$`)

	// plain decimal literals only: no NaN, Inf, hex or underscores
	numberPattern = regexp.MustCompile(`^[+-]?(\d+(\.\d*)?|\.\d+)([eE][+-]?\d+)?$`)
)

// formatCoord writes one "lon lat" pair with 6 decimal places
func formatCoord(p Point) string {
	return strconv.FormatFloat(p.Lon, 'f', 6, 64) + " " + strconv.FormatFloat(p.Lat, 'f', 6, 64)
}

// EncodePoint formats a coordinate as POINT(lon lat)
func EncodePoint(lon, lat float64) string {
	return "POINT(" + formatCoord(Point{Lat: lat, Lon: lon}) + ")"
}

// DecodePoint parses POINT(lon lat). Text that does not match yields (0, 0);
// callers that own the format end-to-end should use ParsePoint instead.
func DecodePoint(text string) (lon, lat float64) {
	p, err := ParsePoint(text)
	if err != nil {
		return 0, 0
	}
	return p.Lon, p.Lat
}

// ParsePoint parses POINT(lon lat) and fails with ErrInvalidGeometry on mismatch
func ParsePoint(text string) (Point, error) {
	m := pointPattern.FindStringSubmatch(text)
	if m == nil {
		return Point{}, fmt.Errorf("%w: not a point: %q", ErrInvalidGeometry, text)
	}
	return parsePair(m[1], m[2])
}

// EncodeLineString formats an ordered path as LINESTRING(x1 y1,x2 y2,...).
// A single point is duplicated since a line string needs two.
func EncodeLineString(points []Point) (string, error) {
	switch len(points) {
	case 0:
		return "", fmt.Errorf("%w: line string needs at least one point", ErrInvalidGeometry)
	case 1:
		points = []Point{points[0], points[0]}
	}
	return "LINESTRING(" + joinCoords(points) + ")", nil
}

// ParseLineString parses LINESTRING(...) into its ordered points
func ParseLineString(text string) ([]Point, error) {
	m := lineStringPattern.FindStringSubmatch(text)
	if m == nil {
		return nil, fmt.Errorf("%w: not a line string: %q", ErrInvalidGeometry, text)
	}
	points, err := parseCoordList(m[1])
	if err != nil {
		return nil, err
	}
	if len(points) < 2 {
		return nil, fmt.Errorf("%w: line string has %d points", ErrInvalidGeometry, len(points))
	}
	return points, nil
}

// EncodePolygon formats a ring as POLYGON((...)), closing it when the first and
// last points differ
func EncodePolygon(points []Point) (string, error) {
	if distinctCount(points) < 3 {
		return "", fmt.Errorf("%w: polygon needs at least 3 distinct points", ErrInvalidGeometry)
	}

	ring := points
	if points[0] != points[len(points)-1] {
		ring = make([]Point, 0, len(points)+1)
		ring = append(ring, points...)
		ring = append(ring, points[0])
	}

	return "POLYGON((" + joinCoords(ring) + "))", nil
}

// DecodePolygon parses POLYGON((...)) and returns the open ring, without the
// closing point
func DecodePolygon(text string) ([]Point, error) {
	m := polygonPattern.FindStringSubmatch(text)
	if m == nil {
		return nil, fmt.Errorf("%w: not a polygon: %q", ErrInvalidGeometry, text)
	}
	ring, err := parseCoordList(m[1])
	if err != nil {
		return nil, err
	}
	if len(ring) > 1 && ring[0] == ring[len(ring)-1] {
		ring = ring[:len(ring)-1]
	}
	if distinctCount(ring) < 3 {
		return nil, fmt.Errorf("%w: polygon needs at least 3 distinct points", ErrInvalidGeometry)
	}
	return ring, nil
}

func joinCoords(points []Point) string {
	parts := make([]string, len(points))
	for i, p := range points {
		parts[i] = formatCoord(p)
	}
	return strings.Join(parts, ",")
}

func parseCoordList(body string) ([]Point, error) {
	if strings.TrimSpace(body) == "" {
		return nil, fmt.Errorf("%w: empty coordinate list", ErrInvalidGeometry)
	}

	pairs := strings.Split(body, ",")
	points := make([]Point, 0, len(pairs))
	for _, pair := range pairs {
		fields := strings.Fields(pair)
		if len(fields) != 2 {
			return nil, fmt.Errorf("%w: bad coordinate %q", ErrInvalidGeometry, pair)
		}
		p, err := parsePair(fields[0], fields[1])
		if err != nil {
			return nil, err
		}
		points = append(points, p)
	}
	return points, nil
}

func parsePair(lonText, latText string) (Point, error) {
	lon, err := parseCoord(lonText, 180)
	if err != nil {
		return Point{}, fmt.Errorf("%w: bad longitude %q", ErrInvalidGeometry, lonText)
	}
	lat, err := parseCoord(latText, 90)
	if err != nil {
		return Point{}, fmt.Errorf("%w: bad latitude %q", ErrInvalidGeometry, latText)
	}
	return Point{Lat: lat, Lon: lon}, nil
}

// parseCoord reads a finite decimal degree value within [-limit, limit]
func parseCoord(text string, limit float64) (float64, error) {
	if !numberPattern.MatchString(text) {
		return 0, errors.New("not a decimal number")
	}
	v, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(v) || math.IsInf(v, 0) || v < -limit || v > limit {
		return 0, errors.New("out of range")
	}
	return v, nil
}
