// Package classify maps a failure raised during request execution to a
// stable, client-safe (category, code, message, severity) tuple.
//
// Checks run in a fixed order and the first match wins:
//
//  1. A failure that wraps a tagged cause is classified by that cause,
//     while Detail keeps the full text of the outer failure for logging.
//  2. Validation failures become VALIDATION warnings with their own message.
//  3. Privilege failures become AUTH warnings with their own message.
//  4. Transport and storage connectivity failures become INFRA errors whose
//     message is always "Network Error.".
//  5. Domain failures become DOMAIN errors with their own code and message.
//  6. Anything else becomes UNKNOWN with its own code, or CodeFatal.
//
// Classify is a pure function: the same failure kind, code and message always
// produce the same result.
package classify
