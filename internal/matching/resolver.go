package matching

import (
	"database/sql"
	"errors"
	"fmt"
	"log"

	"github.com/teris-io/shortid"

	"github.com/bookmatch/go-bookmatch/internal/database"
	"github.com/bookmatch/go-bookmatch/internal/types"
)

// ErrSelfChat is returned when a user tries to open a room with
// themselves.
var ErrSelfChat = errors.New("cannot open a chat room with yourself")

// RoomResolver returns the existing room for a user pair or creates
// one, seeding it with both participants and a snapshot of their
// common books.
type RoomResolver struct {
	log        *log.Logger
	db         database.BookMatchRepository
	dispatcher *NotificationDispatcher
	// generateExternalId is overridable in tests
	generateExternalId func() (string, error)
}

func NewRoomResolver(logger *log.Logger, db database.BookMatchRepository, dispatcher *NotificationDispatcher) *RoomResolver {
	return &RoomResolver{
		log:                logger,
		db:                 db,
		dispatcher:         dispatcher,
		generateExternalId: shortid.Generate,
	}
}

// Resolve returns the room shared by requester and target, creating it
// if none exists. The second return value reports whether a room was
// created by this call: a chat_opened notification goes to the target
// on the creation path only, so repeated calls stay idempotent.
func (r *RoomResolver) Resolve(requesterId, targetId int) (types.ChatRoom, bool, error) {
	if requesterId == targetId {
		return types.ChatRoom{}, false, ErrSelfChat
	}

	pairKey := PairKey(requesterId, targetId)

	room, err := r.db.GetRoomByPairKey(pairKey)
	if err == nil {
		detail, err := r.db.GetRoomDetail(room.Id)
		if err != nil {
			return types.ChatRoom{}, false, fmt.Errorf("fetch room detail: %w", err)
		}
		return ToChatRoom(detail), false, nil
	}
	if err != sql.ErrNoRows {
		return types.ChatRoom{}, false, fmt.Errorf("lookup room: %w", err)
	}

	// Snapshot of the requester's copies of the common books. The
	// snapshot is taken once at creation time and not kept in sync
	// with later book changes.
	commonBooks, err := r.db.GetCommonBooks(requesterId, targetId)
	if err != nil {
		return types.ChatRoom{}, false, fmt.Errorf("snapshot common books: %w", err)
	}

	bookIds := make([]int, 0, len(commonBooks))
	for _, b := range commonBooks {
		bookIds = append(bookIds, b.Id)
	}

	externalId, err := r.generateExternalId()
	if err != nil {
		return types.ChatRoom{}, false, fmt.Errorf("generate room id: %w", err)
	}

	newRoom, err := r.db.CreateRoom(database.CreateRoomParams{
		ExternalId:     externalId,
		PairKey:        pairKey,
		ParticipantIds: [2]int{requesterId, targetId},
		MatchedBookIds: bookIds,
	})
	if err == database.ErrRoomExists {
		// a concurrent resolve for the same pair won; use its room
		existing, err := r.db.GetRoomByPairKey(pairKey)
		if err != nil {
			return types.ChatRoom{}, false, fmt.Errorf("fetch concurrently created room: %w", err)
		}
		detail, err := r.db.GetRoomDetail(existing.Id)
		if err != nil {
			return types.ChatRoom{}, false, fmt.Errorf("fetch room detail: %w", err)
		}
		return ToChatRoom(detail), false, nil
	}
	if err != nil {
		return types.ChatRoom{}, false, fmt.Errorf("create room: %w", err)
	}

	detail, err := r.db.GetRoomDetail(newRoom.Id)
	if err != nil {
		return types.ChatRoom{}, false, fmt.Errorf("fetch room detail: %w", err)
	}

	requesterName := userLabel(r.db, requesterId)
	if _, err := r.dispatcher.Dispatch(database.CreateNotificationParams{
		UserId:    targetId,
		Type:      types.NotificationChatOpened,
		Title:     "New chat room",
		Content:   fmt.Sprintf("%s opened a chat room with you", requesterName),
		RelatedId: newRoom.ExternalId,
		Link:      "/chats/" + newRoom.ExternalId,
	}); err != nil {
		// the room exists either way; the target finds it in their list
		r.log.Printf("dispatch chat_opened notification to user %d: %v", targetId, err)
	}

	return ToChatRoom(detail), true, nil
}
