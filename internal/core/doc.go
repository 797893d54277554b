// Package core provides the import engine for vote and election results.
//
// The package holds everything between the uploaded bytes and the result
// store that is independent of a particular file dialect: the error
// taxonomy, the field validators, the normalized batches, the format
// registry and the [Service] that runs an import.
//
// # Formats
//
// Formats are registered at init time using [Register]. Each
// [FormatDefinition] names its target and the files it reads together with
// their required headers:
//
//	core.Register(core.FormatDefinition{
//	    Info: core.FormatInfo{
//	        Key:    "internal_vote",
//	        Target: core.TargetVote,
//	        Files:  []core.FileSpec{{Role: "results", Headers: voteHeaders}},
//	    },
//	    ParseVote: parseInternalVote,
//	})
//
// The parsers live in package formats.
//
// # Import Flow
//
//  1. The service acquires a slot from the [ImportLimiter] for the target container
//  2. Every file is loaded and checked for missing columns
//  3. The parser validates every line, collecting [Errors] instead of stopping
//  4. Cross file checks run on the complete batch
//  5. Only when no error was collected the writer replaces the stored results
//
// Each step is reported as a [Phase] to the optional phase callback.
//
// # Error Handling
//
// Import problems are values of type [ImportError] with a [Message] that can
// be localized. Every message carries a support code:
//
//   - FILE001-FILE007: File errors (size, encoding, format)
//   - SCH001-SCH002: Missing or duplicate columns
//   - VAL001-VAL017: Line validation errors
//   - XF001-XF003: Cross file errors
//
// Technical storage errors are mapped with [MapError] onto DB001-DB007 and
// IMP001-IMP003.
package core
