// Package io writes exported dialogues in the JSON interchange format read
// by the game runtime.
//
// # JSON Format
//
// An export is a JSON array with one sparse object per line, in display
// order:
//
//	[
//	  {
//	    "id": "intro",
//	    "speaker": "stan",
//	    "text": "Hey, over here!",
//	    "optionA": {"text": "Hi Stan", "jump": "after_choice"},
//	    "set_var": {"met_stan": true},
//	    "jump": "fallback_node",
//	    "jump_if": {"met_stan": "after_choice"}
//	  },
//	  {"text": "Hello"}
//	]
//
// Only "text" is always present. Consumers must tolerate every other key
// being absent. There is no schema version field.
//
// # Writing
//
// Use [WriteJSON] to encode records to any io.Writer, or [MarshalJSON] to
// get the same bytes for a [Sink].
//
// # Sinks
//
// A [Sink] is a named export destination. [FileSink] writes to a temporary
// file in the destination directory and renames it into place, so a failed
// export never leaves a truncated file behind.
// [WriterSink] writes to an arbitrary stream (stdout, HTTP responses) and
// [MongoSink] publishes the dialogue as one document in a MongoDB
// collection. Sink failures are wrapped as EXPORT_FAILED errors; nothing is
// retried.
//
// # Reading
//
// Exports are one-way: this package has no reader, and an exported file is
// not reopened as an editable dialogue.
package io
