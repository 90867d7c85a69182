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
	"context"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/ctessum/requestcache"
	"github.com/sirupsen/logrus"
)

// ArchiveConfig configures access to the observation archive.
type ArchiveConfig struct {
	// Root is the directory that holds one subdirectory per dataset.
	Root string

	// CacheSize is the number of loaded date ranges that are kept in
	// memory. Zero selects a default.
	CacheSize int
}

// ReadOptions modify how archive data are returned.
type ReadOptions struct {
	// PotentialTemperature adds PT_{level} variables computed from the
	// temperature and pressure sensors.
	PotentialTemperature bool

	// Attrs are added to, or replace, the attributes of every record.
	Attrs map[string]string
}

// ObsReader reads observation archives. It remembers what it has loaded,
// so it should be scoped to one batch run.
type ObsReader struct {
	cfg   ArchiveConfig
	cache *requestcache.Cache
}

type archiveRequest struct {
	dataset    string
	start, end time.Time
}

// NewObsReader creates a reader for the archive described by cfg.
func NewObsReader(cfg ArchiveConfig) *ObsReader {
	if cfg.CacheSize <= 0 {
		cfg.CacheSize = 100
	}
	r := &ObsReader{cfg: cfg}
	r.cache = requestcache.NewCache(r.load, 1, requestcache.Deduplicate(), requestcache.Memory(cfg.CacheSize))
	return r
}

// Root returns the archive root directory.
func (r *ObsReader) Root() string { return r.cfg.Root }

func (r *ObsReader) load(_ context.Context, payload interface{}) (interface{}, error) {
	req := payload.(archiveRequest)
	all, err := ListArchive(r.cfg.Root, req.dataset)
	if err != nil {
		return nil, err
	}
	files := overlapping(all, req.start, req.end)
	if len(files) == 0 {
		return nil, noData("no archive files for %s between %s and %s", req.dataset,
			req.start.Format(archiveDateFormat), req.end.Format(archiveDateFormat))
	}
	byStation := make(map[string][]*ObsRecord)
	var order []string
	for _, f := range files {
		Log.WithFields(logrus.Fields{"source": req.dataset, "file": f.Path}).Debug("loading archive file")
		recs, err := readArchiveFile(f.Path, req.dataset)
		if err != nil {
			return nil, err
		}
		for _, rec := range recs {
			if _, ok := byStation[rec.Station.Name]; !ok {
				order = append(order, rec.Station.Name)
			}
			byStation[rec.Station.Name] = append(byStation[rec.Station.Name], rec)
		}
	}
	out := make(map[string]*ObsRecord, len(order))
	for _, s := range order {
		out[s] = mergeRecords(byStation[s])
	}
	return out, nil
}

// Read loads every station of dataset from all archive files whose date
// range overlaps start through end. Records from consecutive files are
// joined along time with repeated timestamps removed, keeping the first.
// A dataset without matching files results in ErrNoData.
func (r *ObsReader) Read(ctx context.Context, dataset string, start, end time.Time, opts ReadOptions) (map[string]*ObsRecord, error) {
	req := archiveRequest{dataset: dataset, start: truncateDay(start), end: truncateDay(end)}
	key := fmt.Sprintf("%s_%s_%s", dataset, req.start.Format(archiveDateFormat), req.end.Format(archiveDateFormat))
	res, err := r.cache.NewRequest(ctx, req, key).Result()
	if err != nil {
		return nil, err
	}
	cached := res.(map[string]*ObsRecord)
	out := make(map[string]*ObsRecord, len(cached))
	for name, rec := range cached {
		rec = rec.Copy()
		for k, v := range opts.Attrs {
			rec.Attrs[k] = v
		}
		if opts.PotentialTemperature {
			pt, err := AddPotentialTemperature(rec)
			if err != nil {
				Log.WithFields(logrus.Fields{"source": dataset, "station": name}).Warnf("potential temperature not added: %v", err)
			} else {
				rec = pt
			}
		}
		out[name] = rec
	}
	return out, nil
}

// ReadObs loads one station of dataset. The station name may be empty if
// the dataset has exactly one station.
func (r *ObsReader) ReadObs(ctx context.Context, dataset, station string, start, end time.Time, opts ReadOptions) (*ObsRecord, error) {
	recs, err := r.Read(ctx, dataset, start, end, opts)
	if err != nil {
		return nil, err
	}
	if station == "" && len(recs) == 1 {
		for _, rec := range recs {
			return rec, nil
		}
	}
	rec, ok := recs[station]
	if !ok {
		return nil, noData("station %s not in dataset %s", station, dataset)
	}
	return rec, nil
}

// WriteArchive writes records of dataset to the archive under root,
// divided into files according to split. A file that already exists is
// merged with the new data, existing data first, unless overwrite is set.
func WriteArchive(root, dataset string, recs []*ObsRecord, split Split, overwrite bool) ([]string, error) {
	var start, end time.Time
	for _, r := range recs {
		if len(r.Times) == 0 {
			continue
		}
		if start.IsZero() || r.Times[0].Before(start) {
			start = r.Times[0]
		}
		if last := r.Times[len(r.Times)-1]; end.IsZero() || last.After(end) {
			end = last
		}
	}
	if start.IsZero() {
		return nil, noData("no observations to write for %s", dataset)
	}
	files, _ := ArchiveFileNames(root, dataset, start, end, split)
	var written []string
	for i, f := range files {
		lo, hi := f.Start, f.End
		if i == len(files)-1 {
			hi = time.Time{}
		}
		var subset []*ObsRecord
		for _, r := range recs {
			s := sliceHalfOpen(r, lo, hi)
			if len(s.Times) > 0 {
				subset = append(subset, s)
			}
		}
		if len(subset) == 0 {
			continue
		}
		if _, err := os.Stat(f.Path); err == nil && !overwrite {
			existing, err := readArchiveFile(f.Path, dataset)
			if err != nil {
				return written, err
			}
			subset = mergeStations(existing, subset)
			Log.WithField("file", f.Path).Info("merging into existing archive file")
		}
		if err := writeArchiveFile(f.Path, dataset, subset); err != nil {
			return written, err
		}
		written = append(written, f.Path)
	}
	return written, nil
}

// sliceHalfOpen returns the part of r with lo <= t < hi, or t >= lo if hi
// is zero.
func sliceHalfOpen(r *ObsRecord, lo, hi time.Time) *ObsRecord {
	s := r.Slice(lo, hi)
	if !hi.IsZero() && len(s.Times) > 0 && s.Times[len(s.Times)-1].Equal(hi) {
		s = s.Slice(time.Time{}, hi.Add(-time.Nanosecond))
	}
	return s
}

// mergeStations joins existing and new records station by station,
// keeping existing values for repeated timestamps.
func mergeStations(existing, added []*ObsRecord) []*ObsRecord {
	groups := make(map[string][]*ObsRecord)
	var order []string
	for _, r := range append(append([]*ObsRecord(nil), existing...), added...) {
		if _, ok := groups[r.Station.Name]; !ok {
			order = append(order, r.Station.Name)
		}
		groups[r.Station.Name] = append(groups[r.Station.Name], r)
	}
	out := make([]*ObsRecord, len(order))
	for i, s := range order {
		out[i] = mergeRecords(groups[s])
	}
	return out
}

// SortedStations returns the station names of recs in order.
func SortedStations(recs map[string]*ObsRecord) []string {
	out := make([]string, 0, len(recs))
	for s := range recs {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}
