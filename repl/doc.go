// Package repl implements the interactive query loop shared by the search
// examples: prompt, read a line, hand it to a handler, print the result,
// until the sentinel word or the end of input.
//
// # Usage
//
//	loop := repl.New(os.Stdin, os.Stdout, repl.Options{})
//	n, err := loop.Run(ctx, func(ctx context.Context, term string) (any, error) {
//	    return node.Search(ctx, "mon_index", node.SearchRequest{Query: node.QueryString(term)})
//	})
//
// With DiscardErrors, handler failures are logged at debug level and the
// loop prompts again.
package repl
