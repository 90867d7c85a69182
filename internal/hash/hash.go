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

// Package hash builds stable keys for plot requests, used to name
// rendered figures and exported tables.
package hash

import (
	"fmt"
	"hash/fnv"
	"regexp"

	"github.com/davecgh/go-spew/spew"
)

var printer = spew.ConfigState{
	Indent:                  " ",
	SortKeys:                true,
	DisableMethods:          true,
	SpewKeys:                true,
	DisablePointerAddresses: true,
	DisableCapacities:       true,
}

// Hash returns a hash key for the specified object. Objects that
// implement fmt.Stringer are keyed by their string.
func Hash(object interface{}) string {
	if s, ok := object.(fmt.Stringer); ok {
		return s.String()
	}
	h := fnv.New128a()
	printer.Fprintf(h, "%#v", object)
	bKey := h.Sum([]byte{})
	return fmt.Sprintf("%x", bKey[0:h.Size()])
}

var unsafeChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// Key returns a key that is safe to use in file names, made of prefix
// followed by the first 12 characters of the hash of object.
func Key(prefix string, object interface{}) string {
	h := Hash(object)
	if len(h) > 12 {
		h = h[:12]
	}
	h = unsafeChars.ReplaceAllString(h, "_")
	if prefix == "" {
		return h
	}
	return unsafeChars.ReplaceAllString(prefix, "_") + "_" + h
}
