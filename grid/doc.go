// Package grid mediates between the canonical table and a rendering surface.
//
// Adapter translates reconciliation diffs into the surface's three primitive
// operations (add, update, remove) and issues them as one transaction per flush.
// It also owns the table operations a grid UI needs: column metadata, selection,
// filtering of the visible view, and CSV export.
//
// Filtering only changes what the surface displays; the table keeps every row.
package grid
