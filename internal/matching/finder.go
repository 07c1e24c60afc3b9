package matching

import (
	"fmt"
	"log"
	"sort"
	"strconv"

	"github.com/bookmatch/go-bookmatch/internal/database"
	"github.com/bookmatch/go-bookmatch/internal/types"
)

// MatchFinder computes which users share books. Titles and authors are
// compared case-insensitively; that single rule is shared with the
// duplicate guard and the common-book snapshot.
type MatchFinder struct {
	log        *log.Logger
	db         database.BookMatchRepository
	dispatcher *NotificationDispatcher
}

func NewMatchFinder(logger *log.Logger, db database.BookMatchRepository, dispatcher *NotificationDispatcher) *MatchFinder {
	return &MatchFinder{
		log:        logger,
		db:         db,
		dispatcher: dispatcher,
	}
}

// FindMatches returns every other user sharing at least one book with
// userId, ranked by the number of shared books. A user with no books
// has no matches. Read-only; nothing is persisted or pushed.
func (f *MatchFinder) FindMatches(userId int) ([]types.Match, error) {
	books, err := f.db.GetBooksByOwner(userId)
	if err != nil {
		return nil, fmt.Errorf("fetch own books: %w", err)
	}

	matches := make([]types.Match, 0)
	if len(books) == 0 {
		return matches, nil
	}

	indexByUser := make(map[int]int)
	for _, book := range books {
		copies, err := f.db.GetBookOwners(book.Title, book.Author, userId)
		if err != nil {
			return nil, fmt.Errorf("fetch owners of %q: %w", book.Title, err)
		}

		for _, c := range copies {
			i, ok := indexByUser[c.OwnerId]
			if !ok {
				i = len(matches)
				indexByUser[c.OwnerId] = i
				matches = append(matches, types.Match{
					UserId:      c.OwnerId,
					Username:    c.Owner.Username,
					Email:       c.Owner.EmailAddress,
					CommonBooks: make([]types.Book, 0, 1),
				})
			}

			matches[i].CommonBooks = append(matches[i].CommonBooks, types.Book{
				Title:  c.Title,
				Author: c.Author,
			})
			matches[i].MatchCount++
		}
	}

	// ties keep insertion order
	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].MatchCount > matches[j].MatchCount
	})

	return matches, nil
}

// NotifyNewBook fires new_match notifications after a book insert: one
// to each other owner of the same book and a self-notification back to
// the adder per match. It returns the number of distinct matched
// users. Dispatch failures are logged and skipped; the book itself is
// already persisted.
func (f *MatchFinder) NotifyNewBook(ownerId int, book database.Book) int {
	copies, err := f.db.GetBookOwners(book.Title, book.Author, ownerId)
	if err != nil {
		f.log.Println("find matched owners:", err)
		return 0
	}
	if len(copies) == 0 {
		return 0
	}

	ownerName := userLabel(f.db, ownerId)

	newMatches := 0
	seen := make(map[int]struct{}, len(copies))
	for _, c := range copies {
		if _, dup := seen[c.OwnerId]; dup {
			continue
		}
		seen[c.OwnerId] = struct{}{}
		newMatches++

		if _, err := f.dispatcher.Dispatch(database.CreateNotificationParams{
			UserId:    c.OwnerId,
			Type:      types.NotificationNewMatch,
			Title:     "New match",
			Content:   fmt.Sprintf("%s also owns \"%s\". You can start chatting!", ownerName, book.Title),
			RelatedId: strconv.Itoa(ownerId),
			Link:      "/matches",
		}); err != nil {
			f.log.Printf("dispatch match notification to user %d: %v", c.OwnerId, err)
		}

		matchedName := c.Owner.Username
		if matchedName == "" {
			matchedName = fallbackUserLabel
		}

		if _, err := f.dispatcher.Dispatch(database.CreateNotificationParams{
			UserId:    ownerId,
			Type:      types.NotificationNewMatch,
			Title:     "Match found",
			Content:   fmt.Sprintf("You and %s both own \"%s\"", matchedName, book.Title),
			RelatedId: strconv.Itoa(c.OwnerId),
			Link:      "/matches",
		}); err != nil {
			f.log.Printf("dispatch self match notification to user %d: %v", ownerId, err)
		}
	}

	return newMatches
}
