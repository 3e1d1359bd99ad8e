// Package asset models a field-asset change notification and the pure rules
// applied to it before any downstream system is touched.
//
// A ChangeEvent is parsed from the GIS webhook envelope. Its free-text
// barcodes are reduced to normalized serials, and the serial prefix decides
// the DeviceClass, which in turn decides which downstream systems the
// reconciler updates. Nothing in this package performs I/O.
package asset
