// Copyright (C) 2025 CardinalHQ, Inc
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as
// published by the Free Software Foundation, version 3.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program. If not, see <http://www.gnu.org/licenses/>.

package filereader

import "errors"

// InputError indicates the input file is missing, unreadable, or its
// primary table cannot be located. It is fatal to a split run.
type InputError struct {
	Path string
	Err  error
}

func (e *InputError) Error() string {
	return "input file " + e.Path + ": " + e.Err.Error()
}

func (e *InputError) Unwrap() error {
	return e.Err
}

// ErrReaderClosed is returned by Next after Close has been called.
var ErrReaderClosed = errors.New("filereader: reader is closed")
