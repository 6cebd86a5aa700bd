// Package output writes request responses.
//
// Every response is the same JSON envelope:
//
//	{"data": ..., "status": 200, "message": "", "serverTime": 1700000000.123}
//
// HTTPOutput writes the envelope to an http.ResponseWriter, optionally
// wrapped in a JSONP callback, and renders named views through a
// ViewRenderer. WebSocketOutput writes the envelope as a text frame on a
// shared websocket connection, tagged with the request ID so a client can
// match responses to requests.
//
// Both implement controller.Output and write at most one response per
// request.
package output
