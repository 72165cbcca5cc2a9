package common

import (
	"encoding/json"
	"errors"
	"fmt"
)

var (
	// ErrNamespaceNotFound is returned when no `# ::id <namespace>.<rest>` field
	// can be found in the sentence metadata. Fatal for anything that needs
	// globally addressable node IRIs.
	ErrNamespaceNotFound = errors.New("article namespace not found")

	// ErrInsufficientFragments is returned when fewer than two sentences could
	// be converted and parsed, so no meaningful document graph exists.
	ErrInsufficientFragments = errors.New("insufficient fragments for a document graph")
)

// Stage names where in the pipeline a sentence was lost.
type Stage string

const (
	StageConvert Stage = "convert"
	StageParse   Stage = "parse"
	StageDecode  Stage = "decode"
)

// SentenceError is a recoverable, per-sentence failure. The sentence is
// excluded from the document graph and processing continues.
type SentenceError interface {
	error
	Sentence() int
	Stage() Stage
}

// ErrorRecord is the serialized form of a SentenceError.
type ErrorRecord struct {
	SentenceIndex int    `json:"sentence_index"`
	Stage         Stage  `json:"stage"`
	Message       string `json:"message"`
}

// NewErrorRecord flattens a SentenceError for storage and transport.
func NewErrorRecord(err SentenceError) ErrorRecord {
	msg := err.Error()
	if u := errors.Unwrap(err); u != nil {
		msg = u.Error()
	}
	return ErrorRecord{
		SentenceIndex: err.Sentence(),
		Stage:         err.Stage(),
		Message:       msg,
	}
}

// ConversionError reports that the external converter failed for a sentence.
type ConversionError struct {
	SentenceIndex int
	Cause         error
}

func (e *ConversionError) Error() string {
	return fmt.Sprintf("sentence %d: conversion failed: %v", e.SentenceIndex, e.Cause)
}

func (e *ConversionError) Unwrap() error { return e.Cause }

func (e *ConversionError) Sentence() int { return e.SentenceIndex }

func (e *ConversionError) Stage() Stage { return StageConvert }

func (e *ConversionError) MarshalJSON() ([]byte, error) {
	return json.Marshal(NewErrorRecord(e))
}

// ParseError reports that a converted fragment is not a well-formed triple set.
type ParseError struct {
	SentenceIndex int
	Cause         error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("sentence %d: malformed rdf fragment: %v", e.SentenceIndex, e.Cause)
}

func (e *ParseError) Unwrap() error { return e.Cause }

func (e *ParseError) Sentence() int { return e.SentenceIndex }

func (e *ParseError) Stage() Stage { return StageParse }

func (e *ParseError) MarshalJSON() ([]byte, error) {
	return json.Marshal(NewErrorRecord(e))
}

// DecodeError reports that the AMR of a sentence could not be decoded. The
// sentence is left out of coreference resolution.
type DecodeError struct {
	SentenceIndex int
	Cause         error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("sentence %d: undecodable amr: %v", e.SentenceIndex, e.Cause)
}

func (e *DecodeError) Unwrap() error { return e.Cause }

func (e *DecodeError) Sentence() int { return e.SentenceIndex }

func (e *DecodeError) Stage() Stage { return StageDecode }

func (e *DecodeError) MarshalJSON() ([]byte, error) {
	return json.Marshal(NewErrorRecord(e))
}

// ClusterReferenceWarning notes a cluster mention whose node does not occur
// in any parsed fragment. The mention is still linked.
type ClusterReferenceWarning struct {
	RelationKey string  `json:"relation_key"`
	Mention     Mention `json:"mention"`
	IRI         string  `json:"iri"`
	Reason      string  `json:"reason"`
}

func (w ClusterReferenceWarning) String() string {
	return fmt.Sprintf("cluster %s: mention %s (%s) %s", w.RelationKey, w.Mention, w.IRI, w.Reason)
}
