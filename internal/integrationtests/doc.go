// Package integrationtests runs the compiled-in modules end to end, from HCL
// dataset files to CSV output, through the app harness.
package integrationtests
