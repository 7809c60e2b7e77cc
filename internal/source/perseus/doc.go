// Package perseus adapts the Liddell-Scott-Jones Greek-English Lexicon as
// served by the Perseus Digital Library. Discovery targets are the 24
// alphabet section pages (addressed by betacode letter); the entry links
// they list lead to pages whose "text" block holds the definitions.
package perseus
