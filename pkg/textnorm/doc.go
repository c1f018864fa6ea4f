/*
Package textnorm turns raw document text into the stemmed tokens Ferret
indexes and searches by.

Normalize applies four steps in order: Unicode-aware word tokenization,
casefolding to lowercase, stopword and non-alphabetic filtering, and
language-specific stemming (Snowball). The output preserves occurrence order
so callers can compute term frequencies by counting.

English and Spanish are supported; an unknown language tag silently falls
back to English rather than failing, because the worker must keep draining
its queue whatever language tag a task carries. Stopword tables are compiled
into the binary and stemmer state is per-call, so Normalize is reentrant
with no initialization step.

Both the worker (document bodies) and the coordinator (query terms) call
this package; search only matches what indexing produced because the two
sides share one pipeline.
*/
package textnorm
