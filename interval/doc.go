/*Package interval implements the interval algebra behind bedmerge: a
  per-chromosome store of feature endpoints, a sweep that merges overlapping,
  abutting or nearby features into runs, chromosome include/exclude filters,
  target restriction (BEDUnion) and two-set overlays.

  Coordinates are 0-based PosType values.  Features and runs use inclusive
  ends; interval-unions use half-open endpoint sequences (see
  endpoint_index.go).
*/
package interval
