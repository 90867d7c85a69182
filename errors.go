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
	"errors"
	"fmt"
)

// ErrNoData is returned when a requested source, variable, level, or file
// does not exist. Aligners turn it into a placeholder column instead of
// failing the whole request.
var ErrNoData = errors.New("wrfplot: no data")

// ErrOutOfRange is returned when a vertical interpolation target lies
// outside the altitude range of a model column at some time step.
var ErrOutOfRange = errors.New("wrfplot: interpolation target outside of column")

// ConfigError describes a configuration problem, such as a required
// metadata attribute that cannot be resolved or an unparseable unit.
// Sources with configuration errors are skipped and logged.
type ConfigError struct {
	Source string
	Field  string
	Msg    string
}

func (e *ConfigError) Error() string {
	if e.Source == "" {
		return fmt.Sprintf("wrfplot: configuration error for %s: %s", e.Field, e.Msg)
	}
	return fmt.Sprintf("wrfplot: configuration error in %s for %s: %s", e.Source, e.Field, e.Msg)
}

// noData wraps ErrNoData with a description of what was missing.
func noData(format string, a ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrNoData, fmt.Sprintf(format, a...))
}

// skippable reports whether err describes a per-source problem that should
// be logged and replaced with a placeholder rather than returned.
func skippable(err error) bool {
	var cerr *ConfigError
	return errors.Is(err, ErrNoData) || errors.Is(err, ErrOutOfRange) || errors.As(err, &cerr)
}
