package main

// User-facing copy that belongs to the server rather than the profile.
var (
	ResumeMissing = `Resume file not found. Please place it in public/assets (e.g., Nuni_V_Vijay_Sai_Resume.pdf).`

	ResumeUnavailable = `The resume could not be loaded right now. Please try again in a moment.`

	ContactInvalid = `Please fill in your name, a valid email address, and a message.`

	PrivacyNotice = `This site counts visits to understand which sections are useful. Client addresses are
	hashed with a per-process secret before they are stored, Do Not Track is honored, and records
	older than the retention window are deleted automatically. Contact form messages are forwarded
	to the site owner's inbox and are never stored here.`
)
