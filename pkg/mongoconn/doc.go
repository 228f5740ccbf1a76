// Package mongoconn connects FluxGate to the MongoDB rule store, the
// production backend for rule documents.
package mongoconn
