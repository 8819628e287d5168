package constant

const (
	ChatMessageRoleUser      = "user"
	ChatMessageRoleAssistant = "assistant"
	ChatMessageRoleSystem    = "system"

	// BackgroundFilesHeading groups background reference material so providers can
	// tell it apart from conversation turns.
	BackgroundFilesHeading = "Background files provided for this conversation:"

	// BackgroundImagesInstruction prefixes the multimodal background block.
	BackgroundImagesInstruction = "The following images and document pages are background material for this conversation. Analyze them and use them to answer the user's questions."

	// SyncAttachmentsTopic is the pub/sub topic that triggers background-attachment
	// retrieval sync when a chat is switched into retrieval mode.
	SyncAttachmentsTopic = "SYNC_CHAT_ATTACHMENTS"

	// NatsTurnCompletedSubject carries usage events after a completed chat turn.
	NatsTurnCompletedSubject = "chat.turn.completed"
)
