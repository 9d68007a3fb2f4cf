package chats

const (
	sessionFields = `
		s.id, s.user_id, s.collection_id, s.title, s.llm_model, s.temperature,
		s.max_tokens, s.top_k, s.system_prompt, s.custom_instructions,
		s.prompt_template, s.personality, s.response_style, s.voice
	`

	sessionColumns = sessionFields + `,
		(SELECT COUNT(*) FROM chat_messages m WHERE m.session_id = s.id),
		s.created_at, s.updated_at
	`

	// row locks do not mix with the message count subquery
	sessionColumnsNoCount = sessionFields + `, 0, s.created_at, s.updated_at`

	queryCreateSession = `
		INSERT INTO chat_sessions AS s (
			id, user_id, collection_id, title, llm_model, temperature, max_tokens, top_k,
			system_prompt, custom_instructions, prompt_template, personality, response_style, voice
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		RETURNING ` + sessionColumnsNoCount

	queryGetSession = `
		SELECT ` + sessionColumns + `
		FROM chat_sessions s
		WHERE s.id = $1 AND s.user_id = $2
	`

	queryLockSession = `
		SELECT ` + sessionColumnsNoCount + `
		FROM chat_sessions s
		WHERE s.id = $1 AND s.user_id = $2
		FOR UPDATE
	`

	queryListSessions = `
		SELECT ` + sessionColumns + `
		FROM chat_sessions s
		WHERE s.user_id = $1
		ORDER BY s.updated_at DESC
		LIMIT $2 OFFSET $3
	`

	queryCountSessions = `SELECT COUNT(*) FROM chat_sessions WHERE user_id = $1`

	queryUpdateSession = `
		UPDATE chat_sessions
		SET title = $2, llm_model = $3, temperature = $4, max_tokens = $5, top_k = $6,
		    system_prompt = $7, custom_instructions = $8, prompt_template = $9,
		    personality = $10, response_style = $11, voice = $12, updated_at = NOW()
		WHERE id = $1
	`

	queryDeleteSession = `DELETE FROM chat_sessions WHERE id = $1 AND user_id = $2`

	queryTouchSession = `UPDATE chat_sessions SET updated_at = NOW() WHERE id = $1`

	queryRetitleSession = `UPDATE chat_sessions SET title = $3 WHERE id = $1 AND title = $2`

	messageColumns = `
		m.id, m.session_id, m.role, m.content, m.sources, m.model,
		m.audio_url, m.translation, m.created_at
	`

	queryInsertMessage = `
		INSERT INTO chat_messages (id, session_id, role, content, sources, model)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at
	`

	// newest n, returned oldest first
	queryRecentMessages = `
		SELECT * FROM (
			SELECT ` + messageColumns + `, m.seq
			FROM chat_messages m
			WHERE m.session_id = $1
			ORDER BY m.seq DESC
			LIMIT $2
		) recent
		ORDER BY seq ASC
	`

	queryListMessages = `
		SELECT ` + messageColumns + `, m.seq
		FROM chat_messages m
		WHERE m.session_id = $1
		ORDER BY m.seq ASC
		LIMIT $2 OFFSET $3
	`

	queryGetMessage = `
		SELECT ` + messageColumns + `, m.seq
		FROM chat_messages m
		JOIN chat_sessions s ON s.id = m.session_id
		WHERE m.id = $1 AND s.user_id = $2
	`

	querySetAudio = `
		UPDATE chat_messages SET audio_url = $2
		WHERE id = $1 AND audio_url IS NULL
	`

	querySetTranslation = `
		UPDATE chat_messages SET translation = $2
		WHERE id = $1 AND translation IS NULL
	`
)
