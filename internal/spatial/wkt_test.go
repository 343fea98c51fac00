package spatial

import (
	"errors"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodePoint(t *testing.T) {
	assert.Equal(t, "POINT(2.352200 48.856600)", EncodePoint(2.3522, 48.8566))
	assert.Equal(t, "POINT(-73.985700 40.748400)", EncodePoint(-73.9857, 40.7484))
}

func TestDecodePoint(t *testing.T) {
	lon, lat := DecodePoint("POINT(2.352200 48.856600)")
	assert.Equal(t, 2.3522, lon)
	assert.Equal(t, 48.8566, lat)

	lon, lat = DecodePoint("point( -1.5   47.2 )")
	assert.Equal(t, -1.5, lon)
	assert.Equal(t, 47.2, lat)

	t.Run("mismatch falls back to origin", func(t *testing.T) {
		for _, text := range []string{"", "POINT()", "POINT(1)", "LINESTRING(1 2,3 4)", "POINT(a b)"} {
			lon, lat := DecodePoint(text)
			assert.Zero(t, lon, text)
			assert.Zero(t, lat, text)
		}
	})
}

func TestParsePointStrict(t *testing.T) {
	p, err := ParsePoint("POINT(10.5 -20.25)")
	require.NoError(t, err)
	assert.Equal(t, Point{Lat: -20.25, Lon: 10.5}, p)

	_, err = ParsePoint("POINT(10.5)")
	assert.True(t, errors.Is(err, ErrInvalidGeometry))

	p, err = ParsePoint("POINT(-180 90)")
	require.NoError(t, err)
	assert.Equal(t, Point{Lat: 90, Lon: -180}, p)
}

func TestParseRejectsNonFiniteAndOutOfRange(t *testing.T) {
	for _, text := range []string{
		"POINT(NaN 0)",
		"POINT(0 nan)",
		"POINT(Inf -Inf)",
		"POINT(+Infinity 0)",
		"POINT(0x1p4 1)",
		"POINT(1_0 1)",
		"POINT(1e400 0)",
		"POINT(180.000001 0)",
		"POINT(0 -90.5)",
	} {
		_, err := ParsePoint(text)
		assert.ErrorIs(t, err, ErrInvalidGeometry, text)
	}

	_, err := ParseLineString("LINESTRING(2.35 48.85,NaN 48.85)")
	assert.ErrorIs(t, err, ErrInvalidGeometry)

	_, err = DecodePolygon("POLYGON((0 0,1 0,1 91,0 0))")
	assert.ErrorIs(t, err, ErrInvalidGeometry)

	lon, lat := DecodePoint("POINT(NaN 0)")
	assert.Zero(t, lon)
	assert.Zero(t, lat)
}

func TestEncodeLineString(t *testing.T) {
	text, err := EncodeLineString([]Point{{Lat: 48.8566, Lon: 2.3522}, {Lat: 48.8567, Lon: 2.3523}})
	require.NoError(t, err)
	assert.Equal(t, "LINESTRING(2.352200 48.856600,2.352300 48.856700)", text)

	t.Run("single point is duplicated", func(t *testing.T) {
		text, err := EncodeLineString([]Point{{Lat: 1, Lon: 2}})
		require.NoError(t, err)
		assert.Equal(t, "LINESTRING(2.000000 1.000000,2.000000 1.000000)", text)

		points, err := ParseLineString(text)
		require.NoError(t, err)
		assert.Len(t, points, 2)
	})

	t.Run("empty path is rejected", func(t *testing.T) {
		_, err := EncodeLineString(nil)
		assert.ErrorIs(t, err, ErrInvalidGeometry)
	})
}

func TestEncodePolygon(t *testing.T) {
	ring := []Point{{Lat: 0, Lon: 0}, {Lat: 0, Lon: 1}, {Lat: 1, Lon: 1}}

	text, err := EncodePolygon(ring)
	require.NoError(t, err)
	assert.Equal(t, "POLYGON((0.000000 0.000000,1.000000 0.000000,1.000000 1.000000,0.000000 0.000000))", text)

	t.Run("already closed ring is not closed twice", func(t *testing.T) {
		closed := append(append([]Point{}, ring...), ring[0])
		text2, err := EncodePolygon(closed)
		require.NoError(t, err)
		assert.Equal(t, text, text2)
	})

	t.Run("fewer than three distinct points", func(t *testing.T) {
		_, err := EncodePolygon([]Point{{Lat: 0, Lon: 0}, {Lat: 1, Lon: 1}, {Lat: 0, Lon: 0}})
		assert.ErrorIs(t, err, ErrInvalidGeometry)

		_, err = EncodePolygon(nil)
		assert.ErrorIs(t, err, ErrInvalidGeometry)
	})

	t.Run("decode rejects garbage", func(t *testing.T) {
		_, err := DecodePolygon("POLYGON((1 2,3))")
		assert.ErrorIs(t, err, ErrInvalidGeometry)
		_, err = DecodePolygon("POINT(1 2)")
		assert.ErrorIs(t, err, ErrInvalidGeometry)
	})
}

// genMicroDegrees yields coordinates that are exact at 6 decimal places
func genMicroDegrees(limit int64) gopter.Gen {
	return gen.Int64Range(-limit*1_000_000, limit*1_000_000).Map(func(v int64) float64 {
		return float64(v) / 1e6
	})
}

func genPoint() gopter.Gen {
	return gopter.CombineGens(genMicroDegrees(90), genMicroDegrees(180)).Map(func(v []interface{}) Point {
		return Point{Lat: v[0].(float64), Lon: v[1].(float64)}
	})
}

func TestPolygonRoundTripProperty(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("decode(encode(ring)) returns the open ring", prop.ForAll(
		func(ring []Point) bool {
			text, err := EncodePolygon(ring)
			if err != nil {
				return false
			}
			decoded, err := DecodePolygon(text)
			if err != nil || len(decoded) != len(ring) {
				return false
			}
			for i := range ring {
				if decoded[i] != ring[i] {
					return false
				}
			}
			return true
		},
		gen.SliceOfN(6, genPoint()).SuchThat(func(ring []Point) bool {
			return distinctCount(ring) >= 3 && ring[0] != ring[len(ring)-1]
		}),
	))

	properties.TestingRun(t)
}
