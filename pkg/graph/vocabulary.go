package graph

// IRIs written by the coreference linker. The cluster vocabulary lives under
// its own fragment namespace so that no relation key can produce a cluster
// node IRI equal to a vocabulary term.
const (
	RDFType   = "http://www.w3.org/1999/02/22-rdf-syntax-ns#type"
	RDFSLabel = "http://www.w3.org/2000/01/rdf-schema#label"

	ClusterVocabulary = "http://example.org/cluster#"
	ClusterClass      = ClusterVocabulary + "Cluster"
	ClusterSameAs     = ClusterVocabulary + "sameAs"
)
