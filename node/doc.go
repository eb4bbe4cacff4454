// Package node runs an embedded, single-node search cluster on top of the
// bleve full-text engine.
//
// A Node owns a set of named indices, each backed by its own bleve index,
// either in memory (Config.Local) or on disk under DataDir/ClusterName.
// Persistent nodes reopen their indices at start.
//
// # Usage
//
//	n, err := node.Start(node.Config{ClusterName: "exemple3", Local: true})
//	if err != nil {
//	    return err
//	}
//	defer n.Close()
//
//	_, err = n.Health(ctx, node.HealthRequest{WaitForStatus: node.HealthYellow})
//	_, err = n.DeleteIndex(ctx, node.AllIndices)
//	_, err = n.CreateIndex(ctx, "mon_index", node.CreateIndexRequest{
//	    Settings: settingsJSON,
//	    Mappings: map[string]string{"mon_type": mappingJSON},
//	})
//
//	bulk := n.PrepareBulk()
//	for _, doc := range docs {
//	    bulk.Add(node.IndexRequest{Index: "mon_index", Type: "mon_type", Source: doc})
//	}
//	resp, err := bulk.Do(ctx)
//
//	res, err := n.Search(ctx, "mon_index", node.SearchRequest{
//	    Query: node.Bool().
//	        Should(node.SimpleQueryString("river")).
//	        MustNot(node.SimpleQueryString("cold")),
//	    Aggregations: []*node.TermsAggregation{
//	        node.Terms("byYear", "year").Size(25).Order(node.OrderTermDesc),
//	    },
//	})
//	fmt.Println(res) // indented JSON
//
// # Settings and mappings
//
// Settings payloads are JSON objects. number_of_shards and
// number_of_replicas are kept as index metadata (a single node cannot
// assign replicas, so declaring any keeps health yellow). Every other key,
// such as analysis or default_analyzer, is passed to bleve's index mapping
// as is. Each mapping payload is a bleve document mapping and applies to
// documents indexed with that type.
//
// # Aggregations
//
// Terms aggregations are computed from the stored values of every matching
// document, so aggregated fields must be stored.
package node
