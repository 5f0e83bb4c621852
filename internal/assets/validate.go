// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package assets

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/h2non/filetype"
)

// sniffLen is how many leading bytes filetype needs to match a header.
const sniffLen = 261

// Validation is the result of checking a file before use.
type Validation struct {
	Valid bool   `json:"valid"`
	Error string `json:"error,omitempty"`
}

// Validate checks that path exists, is non-empty, has an image extension,
// and starts with an image file signature. Each failure has its own reason.
func Validate(path string) Validation {
	info, err := os.Stat(path)
	if errors.Is(err, fs.ErrNotExist) {
		return invalid("File does not exist")
	}
	if err != nil {
		return invalid(fmt.Sprintf("File cannot be read: %v", err))
	}
	if !info.Mode().IsRegular() {
		return invalid("Path is not a regular file")
	}
	if info.Size() == 0 {
		return invalid("File is empty")
	}
	if !IsImageFile(path) {
		return invalid(fmt.Sprintf("Unsupported image extension %q", filepath.Ext(path)))
	}

	f, err := os.Open(path)
	if err != nil {
		return invalid(fmt.Sprintf("File cannot be read: %v", err))
	}
	defer f.Close()

	head := make([]byte, sniffLen)
	n, err := io.ReadFull(f, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) {
		return invalid(fmt.Sprintf("File cannot be read: %v", err))
	}
	if !filetype.IsImage(head[:n]) {
		return invalid("File content is not a recognized image")
	}
	return Validation{Valid: true}
}

// Validate is Validate exposed on the resolver for handlers.
func (r *Resolver) Validate(path string) Validation {
	return Validate(path)
}

func invalid(reason string) Validation {
	return Validation{Valid: false, Error: reason}
}
