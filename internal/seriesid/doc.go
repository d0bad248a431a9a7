/*
Package seriesid parses and formats the addresses of result and input series,
written as an equation (or input) name followed by one bracketed index name
per index set, e.g. `flow[lower]` or `soil_water[forest][top]`.

Addresses are how users pick series on the command line and how the CSV
writer names its columns.
*/
package seriesid
