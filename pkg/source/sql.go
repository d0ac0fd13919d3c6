package source

// Both SQL loaders read the same schema. A scope selects orders by id, by
// scope column, or every order with "all".
const (
	schemaSQL = `
CREATE TABLE IF NOT EXISTS orders (
	id       TEXT PRIMARY KEY,
	scope    TEXT NOT NULL DEFAULT '',
	title    TEXT NOT NULL DEFAULT '',
	customer TEXT NOT NULL DEFAULT '',
	status   TEXT NOT NULL DEFAULT ''
);
CREATE TABLE IF NOT EXISTS documents (
	id                TEXT PRIMARY KEY,
	order_id          TEXT NOT NULL REFERENCES orders(id),
	name              TEXT NOT NULL DEFAULT '',
	doc_type          TEXT NOT NULL DEFAULT '',
	category          TEXT NOT NULL DEFAULT '',
	processing_status TEXT NOT NULL DEFAULT ''
);
CREATE TABLE IF NOT EXISTS document_links (
	source_id TEXT NOT NULL,
	target_id TEXT NOT NULL,
	link_type TEXT NOT NULL DEFAULT 'references'
);
CREATE INDEX IF NOT EXISTS idx_orders_scope ON orders(scope);
CREATE INDEX IF NOT EXISTS idx_documents_order ON documents(order_id);
`

	ordersQuery = `
SELECT o.id, o.title, o.customer, o.status,
       (SELECT COUNT(*) FROM documents d WHERE d.order_id = o.id)
FROM orders o
WHERE %[1]s = 'all' OR o.scope = %[1]s OR o.id = %[1]s
ORDER BY o.id`

	documentsQuery = `
SELECT d.id, d.order_id, d.name, d.doc_type, d.category, d.processing_status
FROM documents d
JOIN orders o ON o.id = d.order_id
WHERE %[1]s = 'all' OR o.scope = %[1]s OR o.id = %[1]s
ORDER BY d.order_id, d.id`

	linksQuery = `
SELECT l.source_id, l.target_id, l.link_type
FROM document_links l
JOIN documents d ON d.id = l.source_id
JOIN orders o ON o.id = d.order_id
WHERE %[1]s = 'all' OR o.scope = %[1]s OR o.id = %[1]s`
)
