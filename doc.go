// Package fedcomposer composes federated GraphQL subgraphs into a supergraph.
//
// Composition runs each subgraph through expansion, federation 2 upgrade and
// validation, merges the validated subgraphs into one schema and checks that every
// field of the merged schema can be reached by a query planner. The result is the
// supergraph SDL with @join__ directives together with its API schema.
//
// The composition entry point lives in pkg/composition, the command line tool in
// cmd/fedcomposer. Errors and hints of all phases are collected by pkg/compositionreport.
package fedcomposer
