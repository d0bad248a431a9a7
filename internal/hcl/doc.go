// Package hcl loads dataset files written in HCL into the format-agnostic
// config.Dataset. Files are parsed with hclparse, decoded into the schema
// structs with gohcl and evaluated with a small function library, so values
// may be written as expressions such as `repeat(0.2, 4)` or `range(1, 11)`.
package hcl
