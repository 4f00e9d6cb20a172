package store

// Fixed Cypher statements used by the bolt-backed store. Relationship types
// cannot be parameters in Cypher, so the relation statements are templates
// taking the type name; everything caller-controlled beyond that is bound.
const (
	nodeByUniqueIDQuery = `
		MATCH (n:NODE {IL_UNIQUE_ID: $id})
		RETURN elementId(n) AS eid, id(n) AS seq, properties(n) AS props
	`

	createNodeQuery = `
		CREATE (n:NODE)
		RETURN elementId(n) AS eid, id(n) AS seq
	`

	applyPropertiesQuery = `
		MATCH (n:NODE) WHERE elementId(n) = $eid
		SET n += $props
	`

	deleteNodeQuery = `
		MATCH (n:NODE) WHERE elementId(n) = $eid
		DETACH DELETE n
	`

	inRelationsQuery = `
		MATCH (s:NODE)-[r]->(n:NODE) WHERE elementId(n) = $eid
		RETURN type(r) AS relType, s.IL_UNIQUE_ID AS startId, n.IL_UNIQUE_ID AS endId, properties(r) AS props
	`

	outRelationsQuery = `
		MATCH (n:NODE)-[r]->(e:NODE) WHERE elementId(n) = $eid
		RETURN type(r) AS relType, n.IL_UNIQUE_ID AS startId, e.IL_UNIQUE_ID AS endId, properties(r) AS props
	`

	createRelationQueryTpl = `
		MATCH (a:NODE) WHERE elementId(a) = $startEid
		MATCH (b:NODE) WHERE elementId(b) = $endEid
		MERGE (a)-[r:%s]->(b)
		SET r += $props
	`

	deleteRelationQueryTpl = `
		MATCH (a:NODE {IL_UNIQUE_ID: $startId})-[r:%s]->(b:NODE {IL_UNIQUE_ID: $endId})
		DELETE r
	`
)
