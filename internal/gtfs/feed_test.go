package gtfs

import (
	"archive/zip"
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/klauspost/compress/gzip"
	"github.com/stretchr/testify/require"
)

// testFeed is a small city. Route 1 runs A-B-C on weekdays, with one
// short run A-B; route 2 runs C-D on weekends. March 12 2025 is a weekday
// without service and March 11 adds weekend service.
var testFeed = map[string]string{
	"agency.txt": `agency_id,agency_name,agency_url,agency_timezone
A1,Test Transit,https://example.com,UTC
`,
	"stops.txt": `stop_id,stop_name,stop_lat,stop_lon,location_type
A,Alpha,50.000,14.000,0
B,Beta,50.000,14.010,0
C,Gamma,50.000,14.020,0
D,Delta,50.010,14.020,0
ST,Central,50.000,14.000,1
`,
	"routes.txt": `route_id,agency_id,route_short_name,route_long_name,route_type,route_color
R1,A1,1,One,0,FF0000
R2,A1,2,Two,3,
`,
	"trips.txt": `route_id,service_id,trip_id,trip_headsign
R1,WD,T1,Gamma
R1,WD,T2,Gamma
R1,WD,T3,Beta
R2,WE,T4,Delta
`,
	"stop_times.txt": `trip_id,arrival_time,departure_time,stop_id,stop_sequence
T1,08:00:00,08:00:00,A,1
T1,08:05:00,08:05:00,B,2
T1,08:10:00,08:10:00,C,3
T2,09:10:00,09:10:00,C,30
T2,09:05:00,09:05:00,B,20
T2,09:00:00,09:00:00,A,10
T3,10:00:00,10:00:00,A,1
T3,10:05:00,10:05:00,B,2
T4,12:00:00,12:00:00,C,1
T4,12:07:00,12:07:00,D,2
`,
	"calendar.txt": `service_id,monday,tuesday,wednesday,thursday,friday,saturday,sunday,start_date,end_date
WD,1,1,1,1,1,0,0,20250101,20251231
WE,0,0,0,0,0,1,1,20250101,20251231
`,
	"calendar_dates.txt": `service_id,date,exception_type
WD,20250312,2
WE,20250311,1
`,
	"transfers.txt": `from_stop_id,to_stop_id,transfer_type,min_transfer_time
C,D,2,120
A,B,3,
`,
}

func feedZip(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, content := range testFeed {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write([]byte(strings.TrimLeft(content, "\n")))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

// writeFeed stores the test feed in a temporary file, gzip-wrapped when
// compressed is set.
func writeFeed(t *testing.T, compressed bool) string {
	t.Helper()
	data := feedZip(t)
	name := "feed.zip"
	if compressed {
		var buf bytes.Buffer
		zw := gzip.NewWriter(&buf)
		_, err := zw.Write(data)
		require.NoError(t, err)
		require.NoError(t, zw.Close())
		data = buf.Bytes()
		name += ".gz"
	}
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, data, 0644))
	return path
}
