package presenter

import (
	"errors"
	"fmt"

	"receipt-ledger/internal/service"
)

const (
	ImageReceived   = "Got your image! Analyzing..."
	NotAnImage      = "You sent a file, but it doesn't appear to be an image. Please send a photo or an image file (JPEG, PNG)."
	NotUnderstood   = "I didn't understand that. Send a receipt image or use /menu for options."
	Apology         = "Sorry, something went wrong while handling your request. Please try again."
	CouldNotDoIt    = "Sorry, the request could not be completed. Please try again later."
	JoinGroupNotice = "To join a group, please ask the administrator to add you using your User ID."
	DateRangeUsage  = "/daterange YYYY-MM-DD_START YYYY-MM-DD_END"
)

func Text(s string) Message {
	return plain(s)
}

func PendingNotice(userID string) Message {
	return markdown(fmt.Sprintf("Your account is pending approval%s Your User ID is %s%s Please wait or contact the administrator%s",
		Escape("."), Code(userID), Escape("."), Escape(".")))
}

func BannedNotice() Message {
	return plain(service.BannedNotice)
}

func DateRangePrompt() Message {
	return markdown(Escape("To get a summary for a custom date range, type:") + "\n" + Code("/daterange YYYY-MM-DD YYYY-MM-DD"))
}

func EditHelp() Message {
	lines := []string{
		"Ref: <PASTE_REF_ID_HERE>",
		"Store: New Store Name (optional)",
		"Date: YYYY-MM-DD (optional)",
		"Total: <new_total_price> (optional)",
		"Currency: ILS (optional)",
		"Item Name 1; Price 1; Category 1; Quantity 1; Unit 1",
		"...",
	}
	text := Escape("To edit, send a message starting with /edit on a new line, then paste the Ref: line, "+
		"followed by the corrected details in this format (one item per line):") + "\n\n"
	for _, l := range lines {
		text += Code(l) + "\n"
	}
	text += "\n" + Escape("Use semicolons (;) to separate item details. Quantity and unit default to 1 and 'unit'. "+
		"Headers you leave out keep their current value; the item list is replaced by the lines you send.") +
		"\n\n" + Escape("Alternatively send /edit <REF_ID> followed by the corrected JSON object.")
	return markdown(text)
}

// Error turns a service failure into the text the user sees. Store failures
// are reported generically; their details belong in the log.
func Error(err error) Message {
	var (
		extErr  *service.ExtractionError
		valErr  *service.ValidationError
		nfErr   *service.NotFoundError
		conErr  *service.ConsistencyError
		confErr *service.ConfigurationError
	)
	switch {
	case errors.As(err, &extErr):
		return plain("Receipt Processing Error: " + extractionText(extErr))
	case errors.As(err, &valErr):
		return plain(valErr.Msg)
	case errors.As(err, &nfErr):
		return markdown(fmt.Sprintf("%s %s %s", Escape(nfErr.Entity), Code(nfErr.ID), Escape("not found.")))
	case errors.As(err, &conErr):
		return plain("Error: " + conErr.Msg)
	case errors.As(err, &confErr):
		return plain("This feature is not available right now: the service is not fully configured.")
	case errors.Is(err, service.ErrMissingIndex):
		return plain("Error: A database index needed for sorting recent receipts is missing. The administrator needs to run the migrations.")
	case errors.Is(err, service.ErrNotInGroup):
		return plain("You are not in a group. The admin can add you, or you can create one with /creategroup <name>.")
	case errors.Is(err, service.ErrAlreadyInGroup):
		return plain("You are already in a group. To create a new one, please leave your current group first using the 'Group Options' menu.")
	case errors.Is(err, service.ErrAdminAction):
		return plain("This action is for regular approved users. Admins should use admin commands for group management.")
	case errors.Is(err, service.ErrForbidden):
		return plain("Your account is not authorized for this action.")
	}
	return plain(CouldNotDoIt)
}

// ReceiptError renders receipt lookups so that missing and forbidden look the same.
func ReceiptError(id string, err error) Message {
	var nfErr *service.NotFoundError
	if errors.Is(err, service.ErrForbidden) || errors.As(err, &nfErr) {
		return ReceiptUnavailable(id)
	}
	return Error(err)
}

func extractionText(e *service.ExtractionError) string {
	switch e.Kind {
	case service.ExtractionNetwork:
		return "Could not reach the receipt reader. Please try again later."
	case service.ExtractionBlocked:
		return "The image was blocked by the content filter."
	case service.ExtractionTruncated:
		return "The receipt reader stopped before finishing. Try a clearer photo."
	case service.ExtractionMalformedJSON:
		return "The receipt reader returned data in an unexpected format. Details: " + e.Detail
	}
	return "No receipt data could be read from the image."
}
