// Package ownership implements the linear ownership checker.
//
// Every resource the engine holds has one Record. A record starts Owned,
// may be Borrowed temporarily, and ends Consumed. Consumed is terminal.
// Operations (create, split, fuse, consume) are validated in full before
// any record changes, so a rejected operation leaves the table exactly as
// it was.
//
// Borrows nest in LIFO order. ReturnBorrow only ever closes the most
// recent frame; anything still open is reported by Leaks.
//
// The checker is not safe for concurrent use. One checker serves one run.
package ownership
