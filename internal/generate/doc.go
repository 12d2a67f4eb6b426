// Package generate creates the temporary index.html files a production build
// needs for page directories that only carry an entry script.
//
// Each generated file is a copy of the pages root index.html with a title
// derived from the directory name. The generator records exactly the files
// it created so Cleanup can restore the tree to its pre-build state:
//
//	g := generate.New(pagesDir, generate.Options{})
//	if _, err := g.Generate(); err != nil {
//		return err
//	}
//	defer g.Cleanup()
package generate
