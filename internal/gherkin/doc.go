// Package gherkin holds the internal document tree produced by the Gherkin
// parser, before it is converted into protocol messages.
//
// Unlike the protocol model, locations and ids are optional here: a parser
// may omit them. Complete fills in missing locations; the converter assigns
// missing ids.
package gherkin
