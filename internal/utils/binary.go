package utils

import (
	"bytes"
	"io"
	"os"
	"strings"
	"unicode/utf8"
)

// BinarySniffLength bounds how many leading bytes are inspected when
// classifying a file as text or binary.
const BinarySniffLength = 8 * 1024

// invalidSequenceReplacement substitutes byte sequences that do not decode as UTF-8.
const invalidSequenceReplacement = "�"

// IsBinary reports whether the provided byte slice appears to contain binary
// data. Data is binary when a null byte occurs inside the sniff window.
func IsBinary(data []byte) bool {
	if len(data) == 0 {
		return false
	}
	window := data
	if len(window) > BinarySniffLength {
		window = window[:BinarySniffLength]
	}
	return bytes.IndexByte(window, 0) >= 0
}

// IsFileBinary reads up to BinarySniffLength bytes from the file at path and
// determines if the content appears to be binary. Unreadable files report false.
func IsFileBinary(path string) bool {
	fileHandle, openError := os.Open(path)
	if openError != nil {
		return false
	}
	defer fileHandle.Close()

	buffer := make([]byte, BinarySniffLength)
	bytesRead, readError := fileHandle.Read(buffer)
	if readError != nil && readError != io.EOF {
		return false
	}
	return IsBinary(buffer[:bytesRead])
}

// DecodeText converts raw file bytes into a string. Valid UTF-8 passes through
// untouched; invalid sequences are replaced rather than rejected, trading byte
// fidelity for a digest that never fails on a stray encoding.
func DecodeText(data []byte) string {
	if utf8.Valid(data) {
		return string(data)
	}
	return strings.ToValidUTF8(string(data), invalidSequenceReplacement)
}
