// Package failure defines the tagged failure values raised by request
// handlers and the numeric codes reported to clients.
//
// Every failure carries an explicit Kind. The classifier switches on that
// kind rather than on concrete error types, so adding a category means adding
// a Kind constant and a case in classify.Classify.
//
// # Usage
//
//	if req.Name == "" {
//	    return failure.Validation("field name required")
//	}
//
//	order, err := store.Load(ctx, id)
//	if err != nil {
//	    return failure.Infra("order store unavailable", err)
//	}
//
//	if order.Closed {
//	    return failure.Domain(4002, "order already closed")
//	}
package failure
