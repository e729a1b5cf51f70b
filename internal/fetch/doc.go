// Package fetch coordinates the cache-check → fetch → store protocol.
//
// Every operation follows the same skeleton: derive the cache key for the
// (request, shape) pair, consult the memory store (download only) and the disk
// store, reuse the entry when it decodes and the freshness policy allows it,
// otherwise call the transport, wrap the fresh value in an envelope, persist
// it, and invoke the completion exactly once with a Result.
//
// Shapes are distinct operations rather than overloads: FetchBytes, FetchMap,
// FetchValue, FetchEnvelope, FetchFirstOf2, FetchFirstOf2Envelope and
// FetchDownload. Completions run on their own goroutine; Await turns any of
// them into a blocking call.
//
// Concurrent identical requests are NOT deduplicated unless
// Options.SingleFlight is set: two cold callers both reach the network and both
// write the entry, and the later write wins. With SingleFlight each caller
// keeps its own cancellation and receives its own copy of the body.
//
// Structured shapes decode with the coordinator's codec, which defaults to a
// strict envelope.JSONCodec: an unknown field or trailing data fails the
// decode. FetchValue then reports ErrDecode, and FetchFirstOf2 treats the body
// as matching neither type, so {"name":"x","extra":1} against (item, status)
// yields ErrDoubleDecodeMiss. Pass envelope.JSONCodec{Lenient: true} (the
// LenientDecoding config key) to accept extra fields; FirstOf2 then picks the
// first type whose decode succeeds, which weakens its discrimination.
package fetch
