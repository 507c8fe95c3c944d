//
// Copyright (c) SAS Institute Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
//

// Package catalog scans a download root for map packages and publishes an XML
// catalog of them, with a gzip copy alongside.
package catalog

import (
	"fmt"
	"strings"
)

// DownloadType classifies a package by the kind of data it carries
type DownloadType int

const (
	Map DownloadType = iota
	Voice
	Depth
	Fonts
	WikiMap
	Wikivoyage
	RoadMap
	Hillshade
	SrtmMap
)

type typeInfo struct {
	name     string
	tag      string
	title    string
	suffixes []string
}

var obfSuffixes = []string{".obf.zip", ".obf"}

var types = [...]typeInfo{
	Map:        {"map", "region", "Map, Roads, POI, Transport, Address data for %s", obfSuffixes},
	Voice:      {"voice", "region", "Voice package: %s", []string{".voice.zip"}},
	Depth:      {"depth", "inapp", "Depth contours for %s", obfSuffixes},
	Fonts:      {"fonts", "fonts", "Fonts %s", []string{".otf.zip"}},
	WikiMap:    {"wiki_map", "wiki", "Wikipedia POI data for %s", obfSuffixes},
	Wikivoyage: {"wikivoyage", "wikivoyage", "Wikivoyage for %s", []string{".sqlite"}},
	RoadMap:    {"road_map", "road_region", "Roads, POI, Address data for %s", obfSuffixes},
	Hillshade:  {"hillshade", "hillshade", "Hillshade for %s", []string{".sqlitedb"}},
	SrtmMap:    {"srtm_map", "srtmcountry", "Contour lines for %s", obfSuffixes},
}

// AllTypes lists every download type in declaration order
func AllTypes() []DownloadType {
	all := make([]DownloadType, len(types))
	for i := range types {
		all[i] = DownloadType(i)
	}
	return all
}

// ParseDownloadType looks up a type by its lowercase name
func ParseDownloadType(name string) (DownloadType, error) {
	for i, info := range types {
		if info.name == strings.ToLower(name) {
			return DownloadType(i), nil
		}
	}
	return 0, fmt.Errorf("unknown download type %q", name)
}

func (t DownloadType) info() typeInfo {
	if t < 0 || int(t) >= len(types) {
		return typeInfo{name: "unknown"}
	}
	return types[t]
}

func (t DownloadType) String() string {
	return t.info().name
}

// Tag returns the element name used for this type in the catalog
func (t DownloadType) Tag() string {
	return t.info().tag
}

// DefaultTitle returns a human readable description of a package of this type
func (t DownloadType) DefaultTitle(regionName string) string {
	title := t.info().title
	if title == "" {
		return ""
	}
	return fmt.Sprintf(title, regionName)
}

// Accepts reports whether filename has one of the suffixes belonging to this
// type. The match is case-sensitive.
func (t DownloadType) Accepts(filename string) bool {
	for _, suffix := range t.info().suffixes {
		if strings.HasSuffix(filename, suffix) {
			return true
		}
	}
	return false
}

// IsArchive reports whether an accepted file is a zip container whose content
// size has to be read from its directory
func IsArchive(filename string) bool {
	return strings.HasSuffix(filename, ".zip")
}
