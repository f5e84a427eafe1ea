package parser

import "umlreg/internal/projection"

// v1 reads XMI 1.x exports (UML 1.3/1.4). Tools that write the UML namespace as
// org.omg.xmi.namespace.UML are normalized to omg.org/UML1.3.
func v1Strategy() strategy {
	return strategy{
		query: projection.QueryXMI11,
		transformers: []LineTransformer{
			Replace("org.omg.xmi.namespace.UML", projection.UML13Namespace),
		},
	}
}

// v2 reads XMI 2.x exports. Older XMI and UML namespace URIs are rewritten to the
// 20131001 ones the projection binds to.
func v2Strategy() strategy {
	return strategy{
		query: projection.QueryXMI2x,
		transformers: Replacements([]Replacement{
			{Old: "http://schema.omg.org/spec/XMI/2.1", New: projection.XMI2Namespace},
			{Old: "http://schema.omg.org/spec/UML/2.1", New: projection.UML2Namespace},
			{Old: "http://www.omg.org/spec/XMI/20110701", New: projection.XMI2Namespace},
			{Old: "http://www.omg.org/spec/UML/20110701", New: projection.UML2Namespace},
		}),
	}
}
