/*
Copyright © 2019 the WRFplot authors.
This file is part of WRFplot.

WRFplot is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

WRFplot is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with WRFplot.  If not, see <http://www.gnu.org/licenses/>.
*/

package wrfplot

import (
	"fmt"
	"io/ioutil"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// archiveDateFormat is the date layout used in archive file names.
const archiveDateFormat = "20060102"

// Split is the policy for dividing an archive into files.
type Split int

const (
	// NoSplit writes one file that spans the whole range.
	NoSplit Split = iota
	// Yearly writes one file per calendar year ("YS").
	Yearly
	// Monthly writes one file per calendar month ("MS").
	Monthly
)

func (s Split) String() string {
	switch s {
	case Yearly:
		return "YS"
	case Monthly:
		return "MS"
	default:
		return "none"
	}
}

// ParseSplit parses a split frequency token: "", "none", "YS" or "MS".
func ParseSplit(token string) (Split, error) {
	switch strings.ToUpper(token) {
	case "", "NONE":
		return NoSplit, nil
	case "YS":
		return Yearly, nil
	case "MS":
		return Monthly, nil
	}
	return NoSplit, &ConfigError{Field: "split", Msg: fmt.Sprintf("unknown split frequency %q", token)}
}

// ArchiveFile is an archive file and the date range encoded in its name.
type ArchiveFile struct {
	Path       string
	Start, End time.Time
}

// ArchiveFileName returns the path of the archive file of dataset
// covering the days of start through end.
func ArchiveFileName(root, dataset string, start, end time.Time) string {
	return filepath.Join(root, dataset, fmt.Sprintf("%s_%s_%s.nc",
		dataset, start.Format(archiveDateFormat), end.Format(archiveDateFormat)))
}

func truncateDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// splitBoundaries returns the period boundaries between the days of
// start and end: the two days themselves, plus every year or month start
// that falls strictly between them when splitting.
func splitBoundaries(start, end time.Time, split Split) []time.Time {
	s, e := truncateDay(start), truncateDay(end)
	out := []time.Time{s}
	var t time.Time
	var step func(time.Time) time.Time
	switch split {
	case Yearly:
		t = time.Date(s.Year(), 1, 1, 0, 0, 0, 0, time.UTC)
		step = func(t time.Time) time.Time { return t.AddDate(1, 0, 0) }
	case Monthly:
		t = time.Date(s.Year(), s.Month(), 1, 0, 0, 0, 0, time.UTC)
		step = func(t time.Time) time.Time { return t.AddDate(0, 1, 0) }
	}
	if step != nil {
		for t = step(t); t.Before(e); t = step(t) {
			out = append(out, t)
		}
	}
	return append(out, e)
}

// ArchiveFileNames returns the files that a dataset spanning start to end
// is written to under the given split policy, along with the period
// boundaries: file i holds the data from bounds[i] through bounds[i+1].
// Times are truncated to days.
func ArchiveFileNames(root, dataset string, start, end time.Time, split Split) ([]ArchiveFile, []time.Time) {
	bounds := splitBoundaries(start, end, split)
	var files []ArchiveFile
	for i := 0; i+1 < len(bounds); i++ {
		files = append(files, ArchiveFile{
			Path:  ArchiveFileName(root, dataset, bounds[i], bounds[i+1]),
			Start: bounds[i],
			End:   bounds[i+1],
		})
	}
	return files, bounds
}

// parseArchiveName extracts the date range from an archive file name.
func parseArchiveName(dataset, base string) (time.Time, time.Time, bool) {
	if !strings.HasPrefix(base, dataset+"_") || !strings.HasSuffix(base, ".nc") {
		return time.Time{}, time.Time{}, false
	}
	rest := strings.TrimSuffix(strings.TrimPrefix(base, dataset+"_"), ".nc")
	parts := strings.Split(rest, "_")
	if len(parts) != 2 {
		return time.Time{}, time.Time{}, false
	}
	s, err := time.Parse(archiveDateFormat, parts[0])
	if err != nil {
		return time.Time{}, time.Time{}, false
	}
	e, err := time.Parse(archiveDateFormat, parts[1])
	if err != nil {
		return time.Time{}, time.Time{}, false
	}
	return s, e, true
}

// ListArchive returns the archive files of dataset sorted by start date.
// A missing directory results in ErrNoData.
func ListArchive(root, dataset string) ([]ArchiveFile, error) {
	dir := filepath.Join(root, dataset)
	infos, err := ioutil.ReadDir(dir)
	if os.IsNotExist(err) {
		return nil, noData("no archive directory %s", dir)
	} else if err != nil {
		return nil, err
	}
	var files []ArchiveFile
	for _, fi := range infos {
		if fi.IsDir() {
			continue
		}
		s, e, ok := parseArchiveName(dataset, fi.Name())
		if !ok {
			continue
		}
		files = append(files, ArchiveFile{Path: filepath.Join(dir, fi.Name()), Start: s, End: e})
	}
	sort.SliceStable(files, func(i, j int) bool {
		if files[i].Start.Equal(files[j].Start) {
			return files[i].End.Before(files[j].End)
		}
		return files[i].Start.Before(files[j].Start)
	})
	return files, nil
}

// overlapping returns the files whose date range intersects the days of
// start through end.
func overlapping(files []ArchiveFile, start, end time.Time) []ArchiveFile {
	s, e := truncateDay(start), truncateDay(end)
	var out []ArchiveFile
	for _, f := range files {
		if !f.Start.After(e) && !f.End.Before(s) {
			out = append(out, f)
		}
	}
	return out
}

// MaxTimeRange returns ten evenly spaced instants from the start of the
// first to the end of the last archive file of dataset. Datasets without
// files span 1970-01-01 to 2070-01-01.
func MaxTimeRange(root, dataset string) []time.Time {
	start := time.Date(1970, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2070, 1, 1, 0, 0, 0, 0, time.UTC)
	if files, err := ListArchive(root, dataset); err == nil && len(files) > 0 {
		start = files[0].Start
		end = files[0].End
		for _, f := range files {
			if f.End.After(end) {
				end = f.End
			}
		}
	}
	const periods = 10
	step := end.Sub(start) / (periods - 1)
	out := make([]time.Time, periods)
	for i := range out {
		out[i] = start.Add(time.Duration(i) * step)
	}
	out[periods-1] = end
	return out
}
