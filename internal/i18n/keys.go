package i18n

// Requester dialogue.
const (
	KeyWelcome      = "welcome"
	KeyLangLabel    = "lang_label"
	KeyBtnOrder     = "btn_order"
	KeyAskName      = "ask_name"
	KeyBtnContact   = "btn_contact"
	KeyAskPhone     = "ask_phone"
	KeyBtnLocation  = "btn_location"
	KeyAskPickup    = "ask_pickup"
	KeyAskDropoff   = "ask_dropoff"
	KeySummaryTitle = "summary_title"
	KeyFieldName    = "field_name"
	KeyFieldPhone   = "field_phone"
	KeyFieldPickup  = "field_pickup"
	KeyFieldDropoff = "field_dropoff"
	KeyFieldComment = "field_comment"
	KeyPickupCoords = "pickup_coords"
	KeyBtnConfirm   = "btn_confirm"
	KeyBtnComment   = "btn_comment"
	KeyAskComment   = "ask_comment"
	KeyAccepted     = "accepted"
	KeyNoFulfillers = "no_fulfillers"
	KeyThanks       = "thanks"
	KeyCancelled    = "cancelled"
)

// Order body sent to fulfillers.
const (
	KeyOrderTitle         = "order_title"
	KeyOrderNav           = "order_nav"
	KeyOrderContactHandle = "order_contact_handle"
	KeyOrderContactPhone  = "order_contact_phone"
	KeyNoPhone            = "no_phone"
)

// Fulfiller bot.
const (
	KeyDriverWelcome = "driver_welcome"
	KeyDriverHelp    = "driver_help"
)
