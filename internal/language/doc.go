// Package language normalizes BCP-47 tags and knows which base languages the
// bundled WhisperX models cover.
//
// Parsing and display names come from golang.org/x/text. A short alias table
// adds the bibliographic ISO 639-2 codes and English names that show up in
// container metadata.
package language
