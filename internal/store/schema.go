package store

const schema = `
	CREATE TABLE IF NOT EXISTS meta (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);

	-- Shared identity of every element
	CREATE TABLE IF NOT EXISTS elements (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		uid TEXT NOT NULL UNIQUE,
		type TEXT NOT NULL,
		enabled INTEGER NOT NULL DEFAULT 1,
		archived INTEGER NOT NULL DEFAULT 0,
		dateCreated TEXT NOT NULL,
		dateUpdated TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS elements_i18n (
		elementId INTEGER NOT NULL REFERENCES elements(id) ON DELETE CASCADE,
		locale TEXT NOT NULL,
		slug TEXT,
		uri TEXT,
		enabled INTEGER NOT NULL DEFAULT 1,
		PRIMARY KEY (elementId, locale)
	);

	-- Locale-scoped titles and custom field values
	CREATE TABLE IF NOT EXISTS content (
		elementId INTEGER NOT NULL REFERENCES elements(id) ON DELETE CASCADE,
		locale TEXT NOT NULL,
		title TEXT,
		fields TEXT NOT NULL DEFAULT '{}',
		PRIMARY KEY (elementId, locale)
	);

	CREATE TABLE IF NOT EXISTS structures (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		maxLevels INTEGER
	);

	-- Nested-set rows; elementId is NULL for each structure's root
	CREATE TABLE IF NOT EXISTS structureelements (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		structureId INTEGER NOT NULL REFERENCES structures(id) ON DELETE CASCADE,
		elementId INTEGER REFERENCES elements(id) ON DELETE CASCADE,
		lft INTEGER NOT NULL,
		rgt INTEGER NOT NULL,
		level INTEGER NOT NULL,
		CHECK (lft < rgt)
	);

	CREATE TABLE IF NOT EXISTS fields (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		context TEXT NOT NULL DEFAULT 'global',
		handle TEXT NOT NULL,
		name TEXT NOT NULL,
		type TEXT NOT NULL,
		translatable INTEGER NOT NULL DEFAULT 0,
		settings TEXT NOT NULL DEFAULT '{}',
		UNIQUE (context, handle)
	);

	CREATE TABLE IF NOT EXISTS relations (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		fieldId INTEGER NOT NULL REFERENCES fields(id) ON DELETE CASCADE,
		sourceId INTEGER NOT NULL REFERENCES elements(id) ON DELETE CASCADE,
		sourceLocale TEXT,
		targetId INTEGER NOT NULL REFERENCES elements(id) ON DELETE CASCADE,
		sortOrder INTEGER NOT NULL DEFAULT 0
	);

	CREATE TABLE IF NOT EXISTS sections (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		structureId INTEGER REFERENCES structures(id) ON DELETE SET NULL,
		name TEXT NOT NULL,
		handle TEXT NOT NULL UNIQUE,
		type TEXT NOT NULL DEFAULT 'channel',
		hasUrls INTEGER NOT NULL DEFAULT 1,
		uriFormat TEXT
	);

	CREATE TABLE IF NOT EXISTS entrytypes (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		sectionId INTEGER NOT NULL REFERENCES sections(id) ON DELETE CASCADE,
		name TEXT NOT NULL,
		handle TEXT NOT NULL,
		hasTitleField INTEGER NOT NULL DEFAULT 1,
		sortOrder INTEGER NOT NULL DEFAULT 0,
		UNIQUE (sectionId, handle)
	);

	CREATE TABLE IF NOT EXISTS users (
		id INTEGER PRIMARY KEY REFERENCES elements(id) ON DELETE CASCADE,
		username TEXT NOT NULL UNIQUE,
		firstName TEXT,
		lastName TEXT,
		email TEXT NOT NULL,
		admin INTEGER NOT NULL DEFAULT 0,
		client INTEGER NOT NULL DEFAULT 0,
		locked INTEGER NOT NULL DEFAULT 0,
		suspended INTEGER NOT NULL DEFAULT 0,
		pending INTEGER NOT NULL DEFAULT 0,
		archived INTEGER NOT NULL DEFAULT 0,
		lastLoginDate TEXT
	);

	CREATE TABLE IF NOT EXISTS entries (
		id INTEGER PRIMARY KEY REFERENCES elements(id) ON DELETE CASCADE,
		sectionId INTEGER NOT NULL REFERENCES sections(id) ON DELETE CASCADE,
		typeId INTEGER NOT NULL REFERENCES entrytypes(id) ON DELETE CASCADE,
		authorId INTEGER REFERENCES users(id) ON DELETE SET NULL,
		postDate TEXT,
		expiryDate TEXT
	);

	CREATE TABLE IF NOT EXISTS categorygroups (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		structureId INTEGER REFERENCES structures(id) ON DELETE SET NULL,
		name TEXT NOT NULL,
		handle TEXT NOT NULL UNIQUE,
		hasUrls INTEGER NOT NULL DEFAULT 1,
		uriFormat TEXT
	);

	CREATE TABLE IF NOT EXISTS categories (
		id INTEGER PRIMARY KEY REFERENCES elements(id) ON DELETE CASCADE,
		groupId INTEGER NOT NULL REFERENCES categorygroups(id) ON DELETE CASCADE
	);

	CREATE TABLE IF NOT EXISTS taggroups (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL,
		handle TEXT NOT NULL UNIQUE
	);

	CREATE TABLE IF NOT EXISTS tags (
		id INTEGER PRIMARY KEY REFERENCES elements(id) ON DELETE CASCADE,
		groupId INTEGER NOT NULL REFERENCES taggroups(id) ON DELETE CASCADE
	);

	CREATE TABLE IF NOT EXISTS usergroups (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL,
		handle TEXT NOT NULL UNIQUE
	);

	CREATE TABLE IF NOT EXISTS usergroups_users (
		groupId INTEGER NOT NULL REFERENCES usergroups(id) ON DELETE CASCADE,
		userId INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		PRIMARY KEY (groupId, userId)
	);

	CREATE TABLE IF NOT EXISTS userpermissions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL UNIQUE
	);

	CREATE TABLE IF NOT EXISTS userpermissions_users (
		permissionId INTEGER NOT NULL REFERENCES userpermissions(id) ON DELETE CASCADE,
		userId INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		PRIMARY KEY (permissionId, userId)
	);

	CREATE TABLE IF NOT EXISTS userpermissions_usergroups (
		permissionId INTEGER NOT NULL REFERENCES userpermissions(id) ON DELETE CASCADE,
		groupId INTEGER NOT NULL REFERENCES usergroups(id) ON DELETE CASCADE,
		PRIMARY KEY (permissionId, groupId)
	);

	CREATE TABLE IF NOT EXISTS assetsources (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL,
		handle TEXT NOT NULL UNIQUE,
		type TEXT NOT NULL DEFAULT 'local',
		sortOrder INTEGER NOT NULL DEFAULT 0
	);

	CREATE TABLE IF NOT EXISTS assetfolders (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		parentId INTEGER REFERENCES assetfolders(id) ON DELETE CASCADE,
		sourceId INTEGER NOT NULL REFERENCES assetsources(id) ON DELETE CASCADE,
		name TEXT NOT NULL,
		path TEXT NOT NULL,
		UNIQUE (sourceId, path)
	);

	CREATE TABLE IF NOT EXISTS assetfiles (
		id INTEGER PRIMARY KEY REFERENCES elements(id) ON DELETE CASCADE,
		sourceId INTEGER NOT NULL REFERENCES assetsources(id) ON DELETE CASCADE,
		folderId INTEGER NOT NULL REFERENCES assetfolders(id) ON DELETE CASCADE,
		filename TEXT NOT NULL,
		kind TEXT NOT NULL DEFAULT 'unknown',
		width INTEGER,
		height INTEGER,
		size INTEGER NOT NULL DEFAULT 0,
		UNIQUE (folderId, filename)
	);

	CREATE TABLE IF NOT EXISTS matrixblocktypes (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		fieldId INTEGER NOT NULL REFERENCES fields(id) ON DELETE CASCADE,
		name TEXT NOT NULL,
		handle TEXT NOT NULL,
		sortOrder INTEGER NOT NULL DEFAULT 0,
		UNIQUE (fieldId, handle)
	);

	CREATE TABLE IF NOT EXISTS matrixblocks (
		id INTEGER PRIMARY KEY REFERENCES elements(id) ON DELETE CASCADE,
		ownerId INTEGER NOT NULL REFERENCES elements(id) ON DELETE CASCADE,
		ownerLocale TEXT,
		fieldId INTEGER NOT NULL REFERENCES fields(id) ON DELETE CASCADE,
		typeId INTEGER NOT NULL REFERENCES matrixblocktypes(id) ON DELETE CASCADE,
		sortOrder INTEGER NOT NULL DEFAULT 0
	);

	CREATE TABLE IF NOT EXISTS globalsets (
		id INTEGER PRIMARY KEY REFERENCES elements(id) ON DELETE CASCADE,
		name TEXT NOT NULL,
		handle TEXT NOT NULL UNIQUE
	);

	-- Keywords produced by the search package
	CREATE TABLE IF NOT EXISTS searchindex (
		elementId INTEGER NOT NULL REFERENCES elements(id) ON DELETE CASCADE,
		attribute TEXT NOT NULL,
		fieldId INTEGER NOT NULL DEFAULT 0,
		locale TEXT NOT NULL,
		keywords TEXT NOT NULL,
		PRIMARY KEY (elementId, attribute, fieldId, locale)
	);

	CREATE INDEX IF NOT EXISTS idx_elements_type ON elements(type);
	CREATE INDEX IF NOT EXISTS idx_elements_i18n_uri ON elements_i18n(uri, locale);
	CREATE INDEX IF NOT EXISTS idx_elements_i18n_slug ON elements_i18n(slug, locale);
	CREATE UNIQUE INDEX IF NOT EXISTS idx_relations_unique
		ON relations(fieldId, sourceId, IFNULL(sourceLocale, ''), targetId);
	CREATE INDEX IF NOT EXISTS idx_relations_target ON relations(targetId);
	CREATE UNIQUE INDEX IF NOT EXISTS idx_structureelements_element
		ON structureelements(structureId, elementId);
	CREATE INDEX IF NOT EXISTS idx_structureelements_bounds
		ON structureelements(structureId, lft, rgt);
	CREATE INDEX IF NOT EXISTS idx_entries_section ON entries(sectionId);
	CREATE INDEX IF NOT EXISTS idx_entries_dates ON entries(postDate, expiryDate);
	CREATE INDEX IF NOT EXISTS idx_matrixblocks_owner ON matrixblocks(ownerId, fieldId);
	CREATE INDEX IF NOT EXISTS idx_assetfiles_folder ON assetfiles(folderId);
`
