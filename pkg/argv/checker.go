// Copyright (c) 2025 AUTHORS All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package argv

// checker collects issues without interrupting the scan. Parse issues
// always precede validation issues in the final list.
type checker struct {
	parse      []*Error
	validation []*Error
}

func (c *checker) record(e *Error) {
	if e == nil {
		return
	}
	if e.Kind == KindValidation {
		c.validation = append(c.validation, e)
		return
	}
	c.parse = append(c.parse, e)
}

func (c *checker) issues() []*Error {
	if len(c.parse)+len(c.validation) == 0 {
		return nil
	}
	out := make([]*Error, 0, len(c.parse)+len(c.validation))
	out = append(out, c.parse...)
	return append(out, c.validation...)
}
