package flow

// User-facing message strings. Kept in one place so wording changes
// never touch flow logic.
const (
	msgAskMode = "Process this receipt with AI? Answer t (yes), n (no) or manual to enter products by hand."

	msgAskComments = "Any comments about this purchase? I'll wait a moment, then continue without them."

	msgAskSharingMode = "Are these products shared or private? Answer w (shared), p (private) or m (mixed)."

	msgAskDefaultFlag = "Which flag should products start with? Answer w (shared) or p (private)."

	msgToggleHelp = "Send comma-separated product numbers to toggle their flag, show to redisplay the list, or stop when you are done."

	msgInvalidSelection = "That selection is not valid. Send product numbers like 1,3 or use show / stop."

	msgAskStore = "What is the store name?"

	msgProductInstructions = "Enter one product per line as: name; price; category (optionally ; w or ; p to override the flag). Send stop when you are done.\nKnown categories:"

	msgProductAdded = "Added. Next product or stop."

	msgIntakeFailed = "I could not read that receipt photo. Please try sending it again."

	msgStorageFailed = "Receipt processing failed due to a storage problem. Please try again later."

	msgConversationFailed = "Receipt entry was cancelled because the conversation stalled. Start over when ready."

	msgValidationFailed = "Receipt entry was cancelled because the input was incomplete. Start over when ready."

	msgCollaboratorFailed = "Receipt processing failed in a downstream service. Nothing more was saved; please try again later."
)
