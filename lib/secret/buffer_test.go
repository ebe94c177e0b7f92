// Copyright 2026 The Warrant Authors
// SPDX-License-Identifier: Apache-2.0

package secret

import (
	"testing"
)

func TestNew_ValidSize(t *testing.T) {
	buffer, err := New(32)
	if err != nil {
		t.Fatalf("New(32) failed: %v", err)
	}
	defer buffer.Close()

	if buffer.Len() != 32 {
		t.Errorf("expected length 32, got %d", buffer.Len())
	}

	// Fresh mmap memory is zero-filled.
	for index, value := range buffer.Bytes() {
		if value != 0 {
			t.Fatalf("expected zero at index %d, got %d", index, value)
		}
	}
}

func TestNew_NonPositiveSize(t *testing.T) {
	for _, size := range []int{0, -1} {
		if _, err := New(size); err == nil {
			t.Errorf("New(%d): expected error", size)
		}
	}
}

func TestNewFromBytes_CopiesAndZerosSource(t *testing.T) {
	source := []byte("master-key-material")
	original := string(source)

	buffer, err := NewFromBytes(source)
	if err != nil {
		t.Fatalf("NewFromBytes failed: %v", err)
	}
	defer buffer.Close()

	if got := buffer.String(); got != original {
		t.Errorf("expected %q, got %q", original, got)
	}

	for index, value := range source {
		if value != 0 {
			t.Fatalf("source byte %d was not zeroed: got %d", index, value)
		}
	}
}

func TestNewFromBytes_Empty(t *testing.T) {
	if _, err := NewFromBytes([]byte{}); err == nil {
		t.Fatal("expected error for empty source")
	}
}

func TestBuffer_Equal(t *testing.T) {
	buffer, err := NewFromBytes([]byte("0123456789abcdef"))
	if err != nil {
		t.Fatalf("NewFromBytes failed: %v", err)
	}
	defer buffer.Close()

	if !buffer.Equal([]byte("0123456789abcdef")) {
		t.Error("Equal returned false for identical contents")
	}
	if buffer.Equal([]byte("0123456789abcdeg")) {
		t.Error("Equal returned true for different contents")
	}
	if buffer.Equal([]byte("0123")) {
		t.Error("Equal returned true for different lengths")
	}
}

func TestBuffer_Close_ZerosMemory(t *testing.T) {
	buffer, err := New(32)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	copy(buffer.Bytes(), []byte("this should be zeroed"))

	if err := buffer.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	if buffer.data != nil {
		t.Error("expected data to be nil after Close")
	}
}

func TestBuffer_Close_Idempotent(t *testing.T) {
	buffer, err := New(16)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	if err := buffer.Close(); err != nil {
		t.Fatalf("first Close failed: %v", err)
	}
	if err := buffer.Close(); err != nil {
		t.Fatalf("second Close failed: %v", err)
	}
}

func TestBuffer_AccessAfterClose_Panics(t *testing.T) {
	accessors := map[string]func(*Buffer){
		"Bytes":  func(b *Buffer) { b.Bytes() },
		"String": func(b *Buffer) { _ = b.String() },
		"Equal":  func(b *Buffer) { b.Equal(nil) },
	}

	for name, access := range accessors {
		t.Run(name, func(t *testing.T) {
			buffer, err := New(16)
			if err != nil {
				t.Fatalf("New failed: %v", err)
			}
			buffer.Close()

			defer func() {
				if recover() == nil {
					t.Fatalf("expected panic on %s after Close", name)
				}
			}()
			access(buffer)
		})
	}
}

func TestZero(t *testing.T) {
	data := []byte{1, 2, 3, 4}
	Zero(data)
	for index, value := range data {
		if value != 0 {
			t.Fatalf("byte %d not zeroed: got %d", index, value)
		}
	}
}
