package header

import (
	"log/slog"
	"path/filepath"
)

// RawDataStorageClass is the SOP Class UID of Raw Data Storage. Members of
// that class carry no informative imaging header, so they are skipped during
// representative selection unless nothing else remains.
const RawDataStorageClass = "1.2.840.10008.5.1.4.1.1.66"

// rawDataStorageName is the human-readable rendering some stored headers use
// for the same class.
const rawDataStorageName = "Raw Data Storage"

// Representative scans candidates in order and returns the first header fit
// to describe the whole set: non-empty file, clean parse, non-empty header.
// A Raw Data Storage member is accepted only when it is the last remaining
// candidate. Returns an empty Dict when no candidate qualifies.
func (e *Extractor) Representative(paths []string) Dict {
	for i, path := range paths {
		last := i == len(paths)-1
		fh := e.ExtractFile(path)
		if e.isRepresentative(fh, last) {
			return fh.Header
		}
	}
	return Dict{}
}

func (e *Extractor) isRepresentative(fh FileHeader, useRawDataStorage bool) bool {
	switch {
	case fh.Size < 1:
		e.log.Warn("file is empty, skipping", slog.String("path", filepath.Base(fh.Path)))
		return false
	case fh.ParseErr != nil:
		e.log.Warn("decoder raised on reading file, skipping", slog.String("path", filepath.Base(fh.Path)))
		return false
	case len(fh.Header) == 0:
		return false
	}
	if isRawDataStorage(fh.Header) && !useRawDataStorage {
		e.log.Warn("SOPClassUID=Raw Data Storage, skipping", slog.String("path", fh.Path))
		return false
	}
	return true
}

func isRawDataStorage(d Dict) bool {
	v, ok := d["SOPClassUID"].(string)
	if !ok {
		return false
	}
	return v == RawDataStorageClass || v == rawDataStorageName
}
