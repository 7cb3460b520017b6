/*Package interval implements interval-union operations in a manner optimized
  for sets of genomic coordinates represented by BED files.
  (Note the 'union'.  Overlapping intervals are merged, not tracked
  separately; a site overlapping the union is therefore counted exactly once
  no matter how many raw BED lines cover it.)
  It assumes every position fits in a PosType, which is currently defined as
  int32 since that's what genomic text formats are limited to in practice.
*/
package interval
